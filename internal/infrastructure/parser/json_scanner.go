package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/scanner"
)

// JSONScanner reads cross-reference feeds that publish a JSON array of notices.
type JSONScanner struct {
	client *http.Client
}

// jsonNotice accepts both field spellings seen in upstream feeds.
type jsonNotice struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Date        string `json:"date"`
	PublishDate string `json:"publishDate"`
	Source      string `json:"source"`
	URL         string `json:"url"`
}

// NewJSONScanner wires an HTTP client; nil gets a 20s timeout client.
func NewJSONScanner(client *http.Client) *JSONScanner {
	return &JSONScanner{client: defaultClient(client)}
}

// Name identifies the strategy inside the registry.
func (j *JSONScanner) Name() string {
	return "json"
}

// Scan decodes each endpoint's array; items without content are skipped.
func (j *JSONScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if len(req.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints provided for source %s", req.SourceName)
	}

	layout := req.Option(optDateLayout, "")
	var results []domain.RawRecord
	for _, ep := range req.Endpoints {
		notices, err := j.fetch(ctx, ep.URL)
		if err != nil {
			return nil, fmt.Errorf("endpoint %s: %w", ep.Name, err)
		}
		for _, n := range notices {
			if record, ok := n.record(req.SourceName, layout); ok {
				results = append(results, record)
			}
		}
	}
	return results, nil
}

func (j *JSONScanner) fetch(ctx context.Context, rawURL string) ([]jsonNotice, error) {
	body, err := get(ctx, j.client, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var notices []jsonNotice
	if err := json.NewDecoder(body).Decode(&notices); err != nil {
		return nil, fmt.Errorf("decode notices: %w", err)
	}
	return notices, nil
}

func (n jsonNotice) record(source, layout string) (domain.RawRecord, bool) {
	content := strings.TrimSpace(n.Content)
	if content == "" {
		content = strings.TrimSpace(n.Description)
	}
	if content == "" {
		return domain.RawRecord{}, false
	}

	date := n.Date
	if date == "" {
		date = n.PublishDate
	}
	if n.Source != "" {
		source = n.Source
	}

	return domain.RawRecord{
		ID:          n.ID,
		Title:       strings.TrimSpace(n.Title),
		Content:     content,
		URL:         n.URL,
		Source:      source,
		PublishedAt: parseDate(date, layout),
	}, true
}
