package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mpolunin/eventwatch/app/config"
	"github.com/mpolunin/eventwatch/app/pipeline"
)

type fakeRunner struct {
	mu   sync.Mutex
	jobs []pipeline.Job
	err  error
}

func (f *fakeRunner) Run(_ context.Context, job pipeline.Job) (pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return pipeline.Result{EventsFound: 1}, f.err
}

func (f *fakeRunner) jobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func newTestScheduler(sources map[string]*config.Source, runner PipelineRunner, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		sources:     sources,
		runner:      runner,
		interval:    interval,
		taskTimeout: 5 * time.Second,
		workerCount: 2,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
		nextRun:     make(map[string]time.Time),
	}
}

func testSource(name string, enabled bool) *config.Source {
	return &config.Source{
		Name: name,
		Type: config.SourceTypeHTML,
		URLs: []string{"https://example.com/" + name},
		Settings: config.Settings{
			Enabled:         enabled,
			RefreshInterval: 3600,
			Timeout:         30,
		},
	}
}

func TestSchedulerRunsEnabledSourcesOnce(t *testing.T) {
	runner := &fakeRunner{}
	sources := map[string]*config.Source{
		"a": testSource("a", true),
		"b": testSource("b", false),
	}

	s := newTestScheduler(sources, runner, 20*time.Millisecond)
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	// The refresh interval is an hour, so even after several ticks the
	// enabled source runs exactly once and the disabled one never.
	if got := runner.jobCount(); got != 1 {
		t.Errorf("Expected 1 pipeline run, got %d", got)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.jobs[0].SourceName != "a" {
		t.Errorf("Expected source 'a' to run, got '%s'", runner.jobs[0].SourceName)
	}
}

func TestSchedulerReEnqueuesAfterRefreshInterval(t *testing.T) {
	runner := &fakeRunner{}
	source := testSource("a", true)
	source.Settings.RefreshInterval = 1 // second

	s := newTestScheduler(map[string]*config.Source{"a": source}, runner, 20*time.Millisecond)
	s.Start()
	time.Sleep(1200 * time.Millisecond)
	s.Stop()

	if got := runner.jobCount(); got < 2 {
		t.Errorf("Expected at least 2 pipeline runs after the refresh interval elapsed, got %d", got)
	}
}

func TestEnqueueTaskQueueFull(t *testing.T) {
	s := newTestScheduler(nil, &fakeRunner{}, time.Hour)
	s.taskQueue = make(chan TaskInterface, 1)

	first := NewScrapeSourceTask(testSource("a", true), &fakeRunner{})
	if err := s.EnqueueTask(first); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	second := NewScrapeSourceTask(testSource("b", true), &fakeRunner{})
	if err := s.EnqueueTask(second); err == nil {
		t.Error("Expected an error when the task queue is full")
	}
}

func TestEnqueueTaskAfterStop(t *testing.T) {
	s := newTestScheduler(nil, &fakeRunner{}, time.Hour)
	s.Start()
	s.Stop()

	// A delayed retry can outlive Stop; its enqueue must be rejected
	// with an error, never panic.
	task := NewScrapeSourceTask(testSource("late", true), &fakeRunner{})
	if err := s.EnqueueTask(task); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled after Stop, got: %v", err)
	}
}

func TestScrapeSourceTaskBuildsJob(t *testing.T) {
	runner := &fakeRunner{}
	source := testSource("city", true)
	source.Defaults = config.Defaults{Category: "music", Address: "Main Sq"}

	task := NewScrapeSourceTask(source, runner)
	if task.GetType() != TaskTypeScrapeSource {
		t.Errorf("Unexpected task type: %s", task.GetType())
	}
	if task.GetSourceName() != "city" {
		t.Errorf("Unexpected source name: %s", task.GetSourceName())
	}

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if runner.jobCount() != 1 {
		t.Fatalf("Expected 1 run, got %d", runner.jobCount())
	}
	job := runner.jobs[0]
	if job.SourceType != pipeline.SourceTypeHTML {
		t.Errorf("Unexpected source type: %s", job.SourceType)
	}
	if job.Defaults.Category != "music" || job.Defaults.Address != "Main Sq" {
		t.Errorf("Defaults not carried into the job: %+v", job.Defaults)
	}
	if job.FetchTimeout != 30*time.Second {
		t.Errorf("Expected the source timeout to bound fetches, got: %v", job.FetchTimeout)
	}
}

func TestScrapeSourceTaskSkipsDisabledSource(t *testing.T) {
	runner := &fakeRunner{}
	task := NewScrapeSourceTask(testSource("off", false), runner)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if runner.jobCount() != 0 {
		t.Errorf("Expected no runs for a disabled source, got %d", runner.jobCount())
	}
}

func TestScrapeSourceTaskPropagatesRunError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("store unreachable")}
	task := NewScrapeSourceTask(testSource("a", true), runner)

	if err := task.Execute(context.Background()); err == nil {
		t.Error("Expected the pipeline error to propagate for retry")
	}
}

func TestTaskRetryAccounting(t *testing.T) {
	task := NewTask(TaskTypeScrapeSource, "a")

	if !task.CanRetry() {
		t.Error("Expected a fresh task to be retryable")
	}
	for i := 0; i < DefaultMaxRetries; i++ {
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Error("Expected retries to be exhausted")
	}
}
