// Package scrape fetches event listing pages and extracts raw event
// candidates from them, using either static HTML parsing or a rendered
// browser session, with per-URL fallback between the two.
package scrape

import (
	"context"
	"errors"

	"github.com/mpolunin/eventwatch/app/event"
)

var (
	// ErrRenderTimeout signals that a rendered page load exceeded the
	// per-page deadline; the orchestrator falls back to static
	// extraction for that URL.
	ErrRenderTimeout = errors.New("render timeout")

	// ErrRenderUnavailable signals that no rendering session is
	// available; the job degrades to static-only mode.
	ErrRenderUnavailable = errors.New("rendering resource unavailable")
)

// Extractor is the single extraction capability both variants share:
// given a page URL and a selector configuration, return raw candidates.
type Extractor interface {
	Extract(ctx context.Context, pageURL string, sel Selectors) ([]event.Candidate, error)
}

// RenderSession is a stateful rendering resource acquired once per job
// and released exactly once at job end.
type RenderSession interface {
	Start(ctx context.Context) error
	Stop()
}

// Selectors maps logical event fields to page-query expressions.
// EventContainer selects the repeating element; the remaining queries
// run relative to each container. Empty queries yield empty fields.
type Selectors struct {
	EventContainer string `yaml:"event_container" json:"eventContainer"`
	Title          string `yaml:"title" json:"title"`
	Description    string `yaml:"description" json:"description"`
	Date           string `yaml:"date" json:"date"`
	Location       string `yaml:"location" json:"location"`
	Address        string `yaml:"address" json:"address"`
	Category       string `yaml:"category" json:"category"`
	Price          string `yaml:"price" json:"price"`
	Link           string `yaml:"link" json:"link"`
}

// Validate checks that the selector configuration can produce
// candidates at all.
func (s Selectors) Validate() error {
	if s.EventContainer == "" {
		return errors.New("event_container selector is required")
	}
	return nil
}
