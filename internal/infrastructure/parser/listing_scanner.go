package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/scanner"
)

// Selector options understood by ListingScanner, with their defaults.
const (
	optItem       = "item"       // ".listing"
	optTitle      = "title"      // ".title"
	optContent    = "content"    // ".description"
	optDate       = "date"       // ".date"
	optLink       = "link"       // "a"
	optDateLayout = "dateLayout" // common layouts
	optPageParam  = "pageParam"  // no pagination
	optMaxPages   = "maxPages"   // 1
)

// ListingScanner scrapes estate-sale listing pages with CSS selectors.
type ListingScanner struct {
	client *http.Client
}

// NewListingScanner wires an HTTP client; nil gets a 20s timeout client.
func NewListingScanner(client *http.Client) *ListingScanner {
	return &ListingScanner{client: defaultClient(client)}
}

// Name identifies the strategy inside the registry.
func (l *ListingScanner) Name() string {
	return "listing"
}

// Scan walks each endpoint (and its pages when pageParam is set) collecting listing items.
func (l *ListingScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if len(req.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints provided for source %s", req.SourceName)
	}

	maxPages := 1
	pageParam := req.Option(optPageParam, "")
	if pageParam != "" {
		if n, err := strconv.Atoi(req.Option(optMaxPages, "1")); err == nil && n > 0 {
			maxPages = n
		}
	}

	results := make([]domain.RawRecord, 0)
	seen := map[string]struct{}{}

	for _, ep := range req.Endpoints {
		for page := 1; page <= maxPages; page++ {
			pageURL := ep.URL
			if pageParam != "" {
				var err error
				pageURL, err = buildPageURL(ep.URL, pageParam, page)
				if err != nil {
					return nil, fmt.Errorf("endpoint %s: %w", ep.Name, err)
				}
			}

			doc, err := l.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("endpoint %s: %w", ep.Name, err)
			}

			items := extractListings(doc, req, pageURL)
			for _, item := range items {
				key := item.URL + "\x00" + item.Title
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				results = append(results, item)
			}

			if len(items) == 0 {
				break
			}
		}
	}

	return results, nil
}

func (l *ListingScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := get(ctx, l.client, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func extractListings(doc *goquery.Document, req scanner.Request, pageURL string) []domain.RawRecord {
	var collected []domain.RawRecord
	base, _ := url.Parse(pageURL)

	doc.Find(req.Option(optItem, ".listing")).Each(func(_ int, sel *goquery.Selection) {
		record, ok := parseListing(sel, req, base)
		if ok {
			collected = append(collected, record)
		}
	})
	return collected
}

func parseListing(sel *goquery.Selection, req scanner.Request, base *url.URL) (domain.RawRecord, bool) {
	title := cleanText(sel.Find(req.Option(optTitle, ".title")).First().Text())

	content := cleanText(sel.Find(req.Option(optContent, ".description")).Text())
	if content == "" {
		content = cleanText(sel.Text())
	}
	if content == "" {
		return domain.RawRecord{}, false
	}

	dateSel := sel.Find(req.Option(optDate, ".date")).First()
	dateText, ok := dateSel.Attr("datetime")
	if !ok {
		dateText = dateSel.Text()
	}

	var link string
	if href, ok := sel.Find(req.Option(optLink, "a")).First().Attr("href"); ok {
		link = resolveLink(base, href)
	}

	return domain.RawRecord{
		Title:       title,
		Content:     content,
		URL:         link,
		Source:      req.SourceName,
		PublishedAt: parseDate(dateText, req.Option(optDateLayout, "")),
	}, true
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func buildPageURL(base, param string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set(param, strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
