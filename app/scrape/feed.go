package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mmcdole/gofeed"

	"github.com/mpolunin/eventwatch/app/event"
)

// FeedExtractor produces candidates from RSS/Atom event feeds. Feed
// sources ignore the selector configuration; field mapping comes from
// the feed itself and missing location/category are filled from source
// defaults later in the pipeline.
type FeedExtractor struct {
	client    *http.Client
	userAgent string
	parser    *gofeed.Parser
}

func NewFeedExtractor(client *http.Client, userAgent string) *FeedExtractor {
	return &FeedExtractor{
		client:    client,
		userAgent: userAgent,
		parser:    gofeed.NewParser(),
	}
}

func (e *FeedExtractor) Extract(ctx context.Context, feedURL string, _ Selectors) ([]event.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setRequestHeaders(req, e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	feed, err := e.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	candidates := make([]event.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		c := event.Candidate{
			Title:       item.Title,
			Description: item.Description,
			DateText:    item.Published,
			Source:      feedURL,
			SourceURL:   item.Link,
		}
		if c.DateText == "" {
			c.DateText = item.Updated
		}
		if len(item.Categories) > 0 {
			c.CategoryText = item.Categories[0]
		}

		candidates = append(candidates, c)
	}

	return candidates, nil
}
