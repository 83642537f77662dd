package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mpolunin/eventwatch/app/config"
	"github.com/mpolunin/eventwatch/app/pipeline"
)

type ScrapeSourceTask struct {
	Task
	Source *config.Source
	runner PipelineRunner
}

func NewScrapeSourceTask(source *config.Source, runner PipelineRunner) *ScrapeSourceTask {
	return &ScrapeSourceTask{
		Task:   NewTask(TaskTypeScrapeSource, source.Name),
		Source: source,
		runner: runner,
	}
}

func (t *ScrapeSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Source.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	res, err := t.runner.Run(ctx, pipeline.Job{
		SourceName:   t.Source.Name,
		SourceType:   t.Source.Type,
		URLs:         t.Source.URLs,
		Selectors:    t.Source.Selectors,
		FetchTimeout: t.Source.Settings.GetTimeout(),
		Defaults: pipeline.Defaults{
			Category: t.Source.Defaults.Category,
			Address:  t.Source.Defaults.Address,
			Location: t.Source.Defaults.Location,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to run pipeline: %w", err)
	}

	slog.Info("Task completed",
		"type", "ScrapeSource",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"found", res.EventsFound,
		"new", res.EventsPersisted,
		"notified", res.UsersNotified)

	return nil
}
