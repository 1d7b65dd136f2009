package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"AgentRadar/internal/config"
	"AgentRadar/internal/domain"
	"AgentRadar/internal/logging"
	"AgentRadar/internal/scanner"
)

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	u, err := buildPageURL("https://sales.example.com/estate?city=toronto", "page", 3)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if parsed.Host != "sales.example.com" {
		t.Fatalf("unexpected host: %s", parsed.Host)
	}
	q := parsed.Query()
	if q.Get("page") != "3" || q.Get("city") != "toronto" {
		t.Fatalf("unexpected query: %s", parsed.RawQuery)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"2026-03-15":            "",
		"March 15, 2026":        "",
		"15 Mar 2026":           "",
		"Posted on 15 Mar 2026": "",
		"15.03.2026":            "02.01.2006",
	}
	for in, layout := range cases {
		got := parseDate(in, layout)
		if !got.Equal(want) {
			t.Fatalf("parseDate(%q) = %v, want %v", in, got, want)
		}
	}
	if !parseDate("soon", "").IsZero() {
		t.Fatalf("expected zero time for unparseable date")
	}
}

const listingPage = `
<html><body>
  <div class="listing">
    <h2 class="title">Estate Sale - 123 Main Street</h2>
    <time class="date" datetime="2026-03-01">March 1</time>
    <p class="description">URGENT estate sale. Executor: John Smith.</p>
    <a href="/sales/123">details</a>
  </div>
  <div class="listing">
    <h2 class="title">Estate Sale - 9 Elm Road</h2>
    <span class="date">2 Mar 2026</span>
    <p class="description">Contents and house, priced to sell.</p>
    <a href="https://other.example.com/9">details</a>
  </div>
  <div class="listing"></div>
</body></html>`

func TestListingScannerParsesItems(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(listingPage))
	}))
	t.Cleanup(srv.Close)

	s := NewListingScanner(srv.Client())
	records, err := s.Scan(context.Background(), scanner.Request{
		SourceName: "estatesales",
		Endpoints:  []scanner.Endpoint{{Name: "toronto", URL: srv.URL + "/list"}},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Title != "Estate Sale - 123 Main Street" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.URL != srv.URL+"/sales/123" {
		t.Fatalf("link not resolved: %q", first.URL)
	}
	if !first.PublishedAt.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", first.PublishedAt)
	}
	if first.Source != "estatesales" || first.Content != "URGENT estate sale. Executor: John Smith." {
		t.Fatalf("unexpected record %+v", first)
	}
	if records[1].URL != "https://other.example.com/9" || !records[1].HasDate() {
		t.Fatalf("unexpected second record %+v", records[1])
	}
}

func TestListingScannerStopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("p") == "1" {
			_, _ = w.Write([]byte(listingPage))
			return
		}
		_, _ = w.Write([]byte(`<html><body>no results</body></html>`))
	}))
	t.Cleanup(srv.Close)

	s := NewListingScanner(srv.Client())
	records, err := s.Scan(context.Background(), scanner.Request{
		SourceName: "estatesales",
		Endpoints:  []scanner.Endpoint{{Name: "toronto", URL: srv.URL}},
		Options:    map[string]string{"pageParam": "p", "maxPages": "5"},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 page requests, got %d", hits.Load())
	}
}

func TestListingScannerHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := NewListingScanner(srv.Client()).Scan(context.Background(), scanner.Request{
		SourceName: "estatesales",
		Endpoints:  []scanner.Endpoint{{Name: "toronto", URL: srv.URL}},
	})
	if err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

const probateFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Probate Notices</title>
  <item>
    <title>Estate of Mary Jones</title>
    <link>https://notices.example.com/1</link>
    <guid>notice-1</guid>
    <pubDate>Mon, 02 Mar 2026 10:00:00 +0000</pubDate>
    <description><![CDATA[<p>Notice to creditors. <b>Estate Trustee:</b> Robert Jones.</p>]]></description>
  </item>
  <item>
    <title>Old notice</title>
    <link>https://notices.example.com/0</link>
    <pubDate>Mon, 05 Jan 2026 10:00:00 +0000</pubDate>
    <description>Probate application for the estate of the late Anne Lee.</description>
  </item>
  <item>
    <title>Empty</title>
  </item>
</channel>
</rss>`

func TestFeedScanner(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(probateFeed))
	}))
	t.Cleanup(srv.Close)

	s := NewFeedScanner(srv.Client())
	req := scanner.Request{
		Day:        time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		SourceName: "court-rss",
		Endpoints:  []scanner.Endpoint{{Name: "probate", URL: srv.URL}},
	}

	records, err := s.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Content != "Notice to creditors. Estate Trustee: Robert Jones." {
		t.Fatalf("html not flattened: %q", records[0].Content)
	}
	if records[0].ID == "" || records[0].URL != "https://notices.example.com/1" {
		t.Fatalf("unexpected record %+v", records[0])
	}

	req.Options = map[string]string{"lookbackDays": "7"}
	records, err = s.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 1 || records[0].Title != "Estate of Mary Jones" {
		t.Fatalf("lookback filter failed: %+v", records)
	}
}

func TestJSONScannerAcceptsBothSpellings(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"content":"Estate sale at 1 King St","title":"Sale","date":"2026-03-01","source":"xref-a"},
			{"description":"Probate filing for the late Tom Hill","publishDate":"2026-03-02T09:00:00Z"},
			{"title":"no content"}
		]`))
	}))
	t.Cleanup(srv.Close)

	records, err := NewJSONScanner(srv.Client()).Scan(context.Background(), scanner.Request{
		SourceName: "xref",
		Endpoints:  []scanner.Endpoint{{Name: "feed", URL: srv.URL}},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Source != "xref-a" || records[1].Source != "xref" {
		t.Fatalf("unexpected sources %q %q", records[0].Source, records[1].Source)
	}
	if records[1].Content != "Probate filing for the late Tom Hill" || !records[1].HasDate() {
		t.Fatalf("unexpected second record %+v", records[1])
	}
}

func TestJSONScannerRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewJSONScanner(srv.Client()).Scan(context.Background(), scanner.Request{
		SourceName: "xref",
		Endpoints:  []scanner.Endpoint{{Name: "feed", URL: srv.URL}},
	})
	if err == nil {
		t.Fatalf("expected decode error")
	}
}

type fakeScanner struct {
	name    string
	records []domain.RawRecord
	err     error
}

func (f fakeScanner) Name() string { return f.name }

func (f fakeScanner) Scan(context.Context, scanner.Request) ([]domain.RawRecord, error) {
	return f.records, f.err
}

func TestStrategySourceSkipsFailingSources(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	reg.Register(fakeScanner{name: "good", records: []domain.RawRecord{{Title: "A", Content: "estate sale"}}})
	reg.Register(fakeScanner{name: "broken", err: errors.New("timeout")})

	regions := []config.RegionConfig{{
		Name:     "toronto",
		Schedule: "@every 6h",
		Sources: []config.SourceConfig{
			{Name: "first", Scanner: "broken"},
			{Name: "second", Scanner: "good"},
			{Name: "third", Scanner: "missing"},
		},
	}}

	src := NewStrategySource(reg, regions, nil, logging.Discard())
	records, err := src.FetchRegion(context.Background(), "toronto", time.Now())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Region != "toronto" || r.Source != "second" || r.ID == "" {
		t.Fatalf("record not stamped: %+v", r)
	}

	again, _ := src.FetchRegion(context.Background(), "toronto", time.Now())
	if again[0].ID != r.ID {
		t.Fatalf("record id not stable: %s vs %s", again[0].ID, r.ID)
	}

	if _, err := src.FetchRegion(context.Background(), "ottawa", time.Now()); err == nil {
		t.Fatalf("expected error for unknown region")
	}
}
