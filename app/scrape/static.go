package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mpolunin/eventwatch/app/event"
)

// StaticExtractor fetches raw markup over HTTP and applies the selector
// configuration with goquery. It parses the page once and queries each
// field relative to the matched containers; a missing sub-field yields
// an empty string rather than failing the page.
type StaticExtractor struct {
	client    *http.Client
	userAgent string
}

func NewStaticExtractor(client *http.Client, userAgent string) *StaticExtractor {
	return &StaticExtractor{
		client:    client,
		userAgent: userAgent,
	}
}

func (e *StaticExtractor) Extract(ctx context.Context, pageURL string, sel Selectors) ([]event.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setRequestHeaders(req, e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return parseCandidates(doc, sel, pageURL), nil
}

// Fixed outbound headers. Both extractor variants send identical
// values so target sites see one client.
const (
	headerAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	headerAcceptLanguage = "en-US,en;q=0.9"
)

func setRequestHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", headerAccept)
	req.Header.Set("Accept-Language", headerAcceptLanguage)
}

// parseCandidates applies the selector set to a parsed document. For N
// matched containers it produces up to N candidates.
func parseCandidates(doc *goquery.Document, sel Selectors, pageURL string) []event.Candidate {
	candidates := make([]event.Candidate, 0)

	doc.Find(sel.EventContainer).Each(func(_ int, container *goquery.Selection) {
		candidates = append(candidates, event.Candidate{
			Title:        fieldText(container, sel.Title),
			Description:  fieldText(container, sel.Description),
			DateText:     fieldText(container, sel.Date),
			LocationText: fieldText(container, sel.Location),
			Address:      fieldText(container, sel.Address),
			CategoryText: fieldText(container, sel.Category),
			PriceText:    fieldText(container, sel.Price),
			Source:       pageURL,
			SourceURL:    fieldLink(container, sel.Link, pageURL),
		})
	})

	return candidates
}

func fieldText(container *goquery.Selection, query string) string {
	if query == "" {
		return ""
	}
	return event.CleanText(container.Find(query).First().Text())
}

// fieldLink extracts the link field's href, resolved against the page
// URL so relative links become absolute.
func fieldLink(container *goquery.Selection, query string, pageURL string) string {
	if query == "" {
		return ""
	}

	href := strings.TrimSpace(container.Find(query).First().AttrOr("href", ""))
	if href == "" {
		return ""
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}

	return base.ResolveReference(ref).String()
}
