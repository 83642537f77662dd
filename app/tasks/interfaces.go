package tasks

import (
	"context"

	"github.com/mpolunin/eventwatch/app/pipeline"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background task processing.
// Example usage:
//
//	scheduler := NewScheduler(sources, runner)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewScrapeSourceTask(source, runner))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// PipelineRunner is the slice of the pipeline the tasks need.
type PipelineRunner interface {
	Run(ctx context.Context, job pipeline.Job) (pipeline.Result, error)
}
