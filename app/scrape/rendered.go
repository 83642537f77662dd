package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mpolunin/eventwatch/app/event"
)

// RenderedExtractor extracts candidates from the browser-rendered DOM.
// Selector application is shared with the static variant; only the way
// the page source is obtained differs.
type RenderedExtractor struct {
	browser *Browser
}

func NewRenderedExtractor(browser *Browser) *RenderedExtractor {
	return &RenderedExtractor{browser: browser}
}

func (e *RenderedExtractor) Extract(ctx context.Context, pageURL string, sel Selectors) ([]event.Candidate, error) {
	html, err := e.browser.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered HTML: %w", err)
	}

	return parseCandidates(doc, sel, pageURL), nil
}
