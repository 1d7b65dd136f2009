package parser

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/scanner"
)

// optLookbackDays drops feed items published more than N days before the scan day. 0 keeps all.
const optLookbackDays = "lookbackDays"

// FeedScanner reads court and probate notices from RSS or Atom feeds.
type FeedScanner struct {
	client *http.Client
}

// NewFeedScanner wires an HTTP client; nil gets a 20s timeout client.
func NewFeedScanner(client *http.Client) *FeedScanner {
	return &FeedScanner{client: defaultClient(client)}
}

// Name identifies the strategy inside the registry.
func (f *FeedScanner) Name() string {
	return "feed"
}

// Scan parses every endpoint feed into raw records.
func (f *FeedScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if len(req.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints provided for source %s", req.SourceName)
	}

	var cutoff time.Time
	if n, err := strconv.Atoi(req.Option(optLookbackDays, "0")); err == nil && n > 0 && !req.Day.IsZero() {
		cutoff = req.Day.AddDate(0, 0, -n)
	}

	var results []domain.RawRecord
	for _, ep := range req.Endpoints {
		feed, err := f.fetchFeed(ctx, ep.URL)
		if err != nil {
			return nil, fmt.Errorf("endpoint %s: %w", ep.Name, err)
		}

		for _, item := range feed.Items {
			record, ok := feedRecord(item, req.SourceName)
			if !ok {
				continue
			}
			if !cutoff.IsZero() && record.HasDate() && record.PublishedAt.Before(cutoff) {
				continue
			}
			results = append(results, record)
		}
	}
	return results, nil
}

func (f *FeedScanner) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := get(ctx, f.client, feedURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func feedRecord(item *gofeed.Item, source string) (domain.RawRecord, bool) {
	if item == nil {
		return domain.RawRecord{}, false
	}

	content := htmlText(item.Content)
	if content == "" {
		content = htmlText(item.Description)
	}
	if content == "" {
		return domain.RawRecord{}, false
	}

	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	}

	id := item.GUID
	if id == "" {
		id = item.Link
	}
	if id != "" {
		id = recordID(domain.RawRecord{URL: id})
	}

	return domain.RawRecord{
		ID:          id,
		Title:       cleanText(item.Title),
		Content:     content,
		URL:         item.Link,
		Source:      source,
		PublishedAt: published,
	}, true
}
