package api

import (
	"github.com/mpolunin/eventwatch/app/config"
	"github.com/mpolunin/eventwatch/app/database"
	"github.com/mpolunin/eventwatch/app/notify"
	"github.com/mpolunin/eventwatch/app/scrape"
	"github.com/mpolunin/eventwatch/app/tasks"
)

type Handler struct {
	eventRepo database.EventRepository
	userRepo  database.UserRepository
	sources   map[string]*config.Source
	runner    tasks.PipelineRunner
	notifier  *notify.Notifier
	scheduler tasks.TaskSchedulerInterface
}

type RunJobRequest struct {
	SourceType string           `json:"source_type"`
	URLs       []string         `json:"urls"`
	Selectors  scrape.Selectors `json:"selectors"`
}

type NotifyRequest struct {
	UserID  string `json:"user_id"`
	EventID string `json:"event_id"`
}

type FeedbackRequest struct {
	UserID  string `json:"user_id"`
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}
