package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mpolunin/eventwatch/app/database"
	"github.com/mpolunin/eventwatch/app/event"
	"github.com/mpolunin/eventwatch/app/match"
	"github.com/mpolunin/eventwatch/app/notify"
	"github.com/mpolunin/eventwatch/app/scrape"
)

const (
	SourceTypeHTML = "html"
	SourceTypeRSS  = "rss"
)

// finishTimeout bounds the post-collection stages (enrichment,
// persistence, notification) independently of the job deadline.
const finishTimeout = 5 * time.Minute

// Job describes one harvest run over a single source. FetchTimeout
// bounds each page or feed fetch; zero leaves only the HTTP client
// timeout in effect.
type Job struct {
	SourceName   string
	SourceType   string
	URLs         []string
	Selectors    scrape.Selectors
	Defaults     Defaults
	FetchTimeout time.Duration
}

// Defaults fill candidate fields the source pages never carry, such as
// a venue address shared by every listing on a city calendar.
type Defaults struct {
	Category string
	Address  string
	Location string
}

type Result struct {
	EventsFound     int `json:"events_found"`
	EventsPersisted int `json:"events_persisted"`
	UsersNotified   int `json:"users_notified"`
}

// Runner wires the full pipeline: extraction, normalization, dedup
// persistence, matching and notification. Runs are serialized; a run
// triggered while another is active queues behind it.
type Runner struct {
	orchestrator *scrape.Orchestrator
	feeds        scrape.Extractor
	enricher     *scrape.DescriptionEnricher
	normalizer   *event.Normalizer
	events       database.EventRepository
	users        database.UserRepository
	matcher      *match.Matcher
	notifier     *notify.Notifier

	notifyWorkers int
	jobTimeout    time.Duration

	mu sync.Mutex
}

type RunnerOptions struct {
	Orchestrator *scrape.Orchestrator
	Feeds        scrape.Extractor
	Enricher     *scrape.DescriptionEnricher
	Normalizer   *event.Normalizer
	Events       database.EventRepository
	Users        database.UserRepository
	Matcher      *match.Matcher
	Notifier     *notify.Notifier

	NotifyWorkers int
	JobTimeout    time.Duration
}

func NewRunner(opts RunnerOptions) *Runner {
	if opts.NotifyWorkers < 1 {
		opts.NotifyWorkers = 1
	}

	return &Runner{
		orchestrator:  opts.Orchestrator,
		feeds:         opts.Feeds,
		enricher:      opts.Enricher,
		normalizer:    opts.Normalizer,
		events:        opts.Events,
		users:         opts.Users,
		matcher:       opts.Matcher,
		notifier:      opts.Notifier,
		notifyWorkers: opts.NotifyWorkers,
		jobTimeout:    opts.JobTimeout,
	}
}

// Run executes one job end to end. Extraction and notification errors
// degrade the result; only an unreachable event store fails the run.
func (r *Runner) Run(ctx context.Context, job Job) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fetchCtx := ctx
	if r.jobTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, r.jobTimeout)
		defer cancel()
	}

	started := time.Now()
	slog.Info("Starting pipeline run",
		"source", job.SourceName, "type", job.SourceType, "urls", len(job.URLs))

	var res Result

	candidates := r.collect(fetchCtx, job)
	res.EventsFound = len(candidates)

	// The job deadline bounds collection only. Candidates gathered
	// before it fired are still normalized, persisted and fanned out
	// under a fresh deadline, so an expired job degrades to partial
	// results instead of discarding the batch.
	finishCtx, finishCancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer finishCancel()

	events := r.normalize(finishCtx, candidates, job.Defaults)

	persisted, err := r.events.InsertNew(finishCtx, events)
	if err != nil {
		return res, fmt.Errorf("pipeline run failed for source %s: %w", job.SourceName, err)
	}
	res.EventsPersisted = len(persisted)

	if len(persisted) > 0 {
		res.UsersNotified = r.fanOut(finishCtx, persisted)
	}

	slog.Info("Pipeline run completed",
		"source", job.SourceName,
		"events_found", res.EventsFound,
		"events_persisted", res.EventsPersisted,
		"users_notified", res.UsersNotified,
		"duration", time.Since(started).Round(time.Millisecond))

	return res, nil
}

func (r *Runner) collect(ctx context.Context, job Job) []event.Candidate {
	if job.SourceType == SourceTypeRSS {
		var candidates []event.Candidate
		for _, feedURL := range job.URLs {
			batch, err := r.fetchFeed(ctx, feedURL, job)
			if err != nil {
				slog.Warn("Feed extraction failed, skipping URL", "url", feedURL, "error", err)
				continue
			}
			candidates = append(candidates, batch...)
		}
		return candidates
	}

	return r.orchestrator.Run(ctx, job.URLs, job.Selectors, job.FetchTimeout)
}

func (r *Runner) fetchFeed(ctx context.Context, feedURL string, job Job) ([]event.Candidate, error) {
	if job.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.FetchTimeout)
		defer cancel()
	}
	return r.feeds.Extract(ctx, feedURL, job.Selectors)
}

func (r *Runner) normalize(ctx context.Context, candidates []event.Candidate, defaults Defaults) []event.Event {
	events := make([]event.Event, 0, len(candidates))

	for _, c := range candidates {
		applyDefaults(&c, defaults)

		if r.enricher != nil && c.Description == "" && c.SourceURL != "" {
			text, err := r.enricher.Describe(ctx, c.SourceURL)
			if err != nil {
				slog.Debug("Description enrichment failed", "url", c.SourceURL, "error", err)
			} else {
				c.Description = text
			}
		}

		evt, err := r.normalizer.Run(c)
		if err != nil {
			slog.Warn("Dropping malformed candidate",
				"title", c.Title, "source_url", c.SourceURL, "error", err)
			continue
		}
		events = append(events, *evt)
	}

	return events
}

func (r *Runner) fanOut(ctx context.Context, events []event.Event) int {
	users, err := r.users.ListSubscribers(ctx)
	if err != nil {
		slog.Error("Failed to list subscribers, skipping notifications", "error", err)
		return 0
	}
	if len(users) == 0 {
		return 0
	}

	type delivery struct {
		user event.User
		evt  event.Event
	}

	var deliveries []delivery
	for _, evt := range events {
		for _, u := range r.matcher.Match(evt, users) {
			deliveries = append(deliveries, delivery{user: u, evt: evt})
		}
	}

	var notified atomic.Int64
	sem := make(chan struct{}, r.notifyWorkers)
	var wg sync.WaitGroup

	for _, d := range deliveries {
		wg.Add(1)
		sem <- struct{}{}
		go func(d delivery) {
			defer wg.Done()
			defer func() { <-sem }()

			out := r.notifier.Notify(ctx, d.user, d.evt)
			if out.SMSSent || out.EmailSent {
				notified.Add(1)
			}
		}(d)
	}
	wg.Wait()

	return int(notified.Load())
}

func applyDefaults(c *event.Candidate, defaults Defaults) {
	if c.CategoryText == "" {
		c.CategoryText = defaults.Category
	}
	if c.Address == "" {
		c.Address = defaults.Address
	}
	if c.LocationText == "" {
		c.LocationText = defaults.Location
	}
}
