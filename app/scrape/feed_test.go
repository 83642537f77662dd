package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const eventFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>City Events</title>
    <link>https://example.com</link>
    <description>Upcoming events</description>
    <item>
      <title>Open Air Concert</title>
      <link>https://example.com/events/concert</link>
      <description>Concert in the park</description>
      <pubDate>Sat, 12 Sep 2026 19:30:00 GMT</pubDate>
      <category>music</category>
    </item>
    <item>
      <title>Startup Meetup</title>
      <link>https://example.com/events/meetup</link>
      <description>Monthly founders meetup</description>
      <pubDate>Sun, 13 Sep 2026 18:00:00 GMT</pubDate>
      <category>business</category>
    </item>
  </channel>
</rss>`

func TestFeedExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(eventFeed))
	}))
	defer server.Close()

	extractor := NewFeedExtractor(server.Client(), "eventwatch-test/1.0")

	candidates, err := extractor.Extract(context.Background(), server.URL, Selectors{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got: %d", len(candidates))
	}

	first := candidates[0]
	if first.Title != "Open Air Concert" {
		t.Errorf("Unexpected title: %q", first.Title)
	}
	if first.SourceURL != "https://example.com/events/concert" {
		t.Errorf("Unexpected source URL: %q", first.SourceURL)
	}
	if first.DateText == "" {
		t.Error("Expected published date carried as raw date text")
	}
	if first.CategoryText != "music" {
		t.Errorf("Unexpected category: %q", first.CategoryText)
	}
	if first.Source != server.URL {
		t.Errorf("Expected feed URL as provenance, got: %q", first.Source)
	}
}

func TestFeedExtractInvalidPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not a feed"))
	}))
	defer server.Close()

	extractor := NewFeedExtractor(server.Client(), "eventwatch-test/1.0")

	if _, err := extractor.Extract(context.Background(), server.URL, Selectors{}); err == nil {
		t.Error("Expected an error for a non-feed payload, got nil")
	}
}
