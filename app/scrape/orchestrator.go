package scrape

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mpolunin/eventwatch/app/event"
)

// Orchestrator runs one scrape job over a set of URLs. Per URL it
// attempts rendered extraction first when a rendering session is up,
// falls back to static extraction on any rendered failure, and skips
// the URL when static extraction fails too. One URL's failure never
// aborts the batch.
//
// The rendering session is exclusively owned by one active job; the
// job-level mutex serializes whole job lifecycles so a concurrently
// triggered job queues behind the active one.
type Orchestrator struct {
	static   Extractor
	rendered Extractor
	session  RenderSession
	workers  int

	mu sync.Mutex
}

// NewOrchestrator builds an orchestrator. Passing a nil session (and
// nil rendered extractor) disables rendered extraction entirely; the
// orchestrator then runs every URL through the static variant.
func NewOrchestrator(static Extractor, rendered Extractor, session RenderSession, workers int) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		static:   static,
		rendered: rendered,
		session:  session,
		workers:  workers,
	}
}

// Run fetches all URLs and aggregates their candidates. The session is
// acquired once at job start and released on every exit path. When the
// context is cancelled mid-batch the remaining URLs are abandoned and
// the candidates collected so far are returned, so partial results can
// still be persisted. A positive fetchTimeout bounds each extraction
// attempt separately.
func (o *Orchestrator) Run(ctx context.Context, urls []string, sel Selectors, fetchTimeout time.Duration) []event.Candidate {
	o.mu.Lock()
	defer o.mu.Unlock()

	renderedUp := false
	if o.session != nil && o.rendered != nil {
		if err := o.session.Start(ctx); err != nil {
			slog.Warn("Rendering session unavailable, running static-only job", "error", err)
		} else {
			renderedUp = true
			defer o.session.Stop()
		}
	}

	jobs := make(chan string)
	results := make(chan []event.Candidate)

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pageURL := range jobs {
				results <- o.fetchOne(ctx, pageURL, sel, renderedUp, fetchTimeout)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, pageURL := range urls {
			select {
			case jobs <- pageURL:
			case <-ctx.Done():
				slog.Warn("Job deadline reached, aborting remaining fetches",
					"remaining", len(urls)-i, "error", ctx.Err())
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	candidates := make([]event.Candidate, 0)
	for batch := range results {
		candidates = append(candidates, batch...)
	}

	return candidates
}

func (o *Orchestrator) fetchOne(ctx context.Context, pageURL string, sel Selectors, renderedUp bool, fetchTimeout time.Duration) []event.Candidate {
	if err := ctx.Err(); err != nil {
		return nil
	}

	if renderedUp {
		candidates, err := o.extract(ctx, o.rendered, pageURL, sel, fetchTimeout)
		if err == nil {
			slog.Debug("Rendered extraction succeeded", "url", pageURL, "candidates", len(candidates))
			return candidates
		}
		slog.Warn("Rendered extraction failed, falling back to static", "url", pageURL, "error", err)
	}

	candidates, err := o.extract(ctx, o.static, pageURL, sel, fetchTimeout)
	if err != nil {
		slog.Error("Static extraction failed, skipping URL", "url", pageURL, "error", err)
		return nil
	}

	slog.Debug("Static extraction succeeded", "url", pageURL, "candidates", len(candidates))
	return candidates
}

// extract runs a single extraction attempt, bounded by the per-fetch
// timeout when one is configured. The timeout applies per attempt, so
// a slow rendered attempt cannot starve its static fallback.
func (o *Orchestrator) extract(ctx context.Context, ex Extractor, pageURL string, sel Selectors, fetchTimeout time.Duration) ([]event.Candidate, error) {
	if fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
	}
	return ex.Extract(ctx, pageURL, sel)
}
