package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mpolunin/eventwatch/app/cfg"
	"github.com/mpolunin/eventwatch/app/config"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// ErrQueueFull is returned when a task cannot be enqueued because the
// queue is at capacity.
var ErrQueueFull = errors.New("task queue is full")

type Scheduler struct {
	sources     map[string]*config.Source
	runner      PipelineRunner
	interval    time.Duration
	taskTimeout time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	// nextRun is touched only by the ticker goroutine.
	nextRun map[string]time.Time
}

func NewScheduler(sources map[string]*config.Source, runner PipelineRunner) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		sources:     sources,
		runner:      runner,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		taskTimeout: time.Duration(cfg.JobTimeout) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
		nextRun:     make(map[string]time.Time),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
}

// Stop cancels the workers and waits for them to drain. The queue
// channel is left open on purpose: delayed retry goroutines may still
// attempt an enqueue after Stop, and a closed channel would turn that
// into a send panic instead of a rejected enqueue.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) enqueueDueTasks() {
	if len(s.sources) == 0 {
		slog.Debug("No source configurations found")
		return
	}

	now := time.Now().UTC()

	for _, source := range s.sources {
		if !source.Settings.Enabled {
			slog.Debug("Source disabled, skipping", "source", source.Name)
			continue
		}

		if next, ok := s.nextRun[source.Name]; ok && next.After(now) {
			slog.Debug("Source not due for refresh yet", "source", source.Name, "next_run", next)
			continue
		}

		task := NewScrapeSourceTask(source, s.runner)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue ScrapeSourceTask", "source", source.Name, "error", err)
			continue
		}

		s.nextRun[source.Name] = now.Add(source.Settings.GetRefreshInterval())
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
