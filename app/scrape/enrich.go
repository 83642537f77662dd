package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/mpolunin/eventwatch/app/event"
)

const maxDescriptionLength = 500

// DescriptionEnricher fills in a candidate's description by fetching
// its event page and extracting the readable text, for listings whose
// index page carries no description.
type DescriptionEnricher struct {
	client    *http.Client
	userAgent string
}

func NewDescriptionEnricher(client *http.Client, userAgent string) *DescriptionEnricher {
	return &DescriptionEnricher{
		client:    client,
		userAgent: userAgent,
	}
}

func (e *DescriptionEnricher) Describe(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	setRequestHeaders(req, e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	article, err := readability.FromReader(resp.Body, nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := event.CleanText(article.Excerpt)
	if text == "" {
		text = event.CleanText(article.TextContent)
	}
	if text == "" {
		return "", fmt.Errorf("no content extracted from %s", pageURL)
	}

	if len(text) > maxDescriptionLength {
		cut := text[:maxDescriptionLength]
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		text = cut + "…"
	}

	return text, nil
}
