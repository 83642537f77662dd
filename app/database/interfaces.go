package database

import (
	"context"

	"github.com/mpolunin/eventwatch/app/event"
)

// EventRepository persists normalized events. Persisted events are
// immutable in their base fields; only feedback entries are appended.
type EventRepository interface {
	// InsertNew bulk-inserts events, skipping any whose source_url is
	// already stored, and returns the subset actually persisted as new.
	// Per-item failures are logged and skipped; the batch continues.
	InsertNew(ctx context.Context, events []event.Event) ([]event.Event, error)

	GetEvent(ctx context.Context, id string) (*event.Event, error)
	GetRecentEvents(ctx context.Context, limit int) ([]event.Event, error)
	GetEventCount(ctx context.Context) (int, error)

	AppendFeedback(ctx context.Context, fb event.Feedback) error
}

// UserRepository reads notification subscribers. User lifecycle
// (creation, preference updates) belongs to the CRUD layer.
type UserRepository interface {
	ListSubscribers(ctx context.Context) ([]event.User, error)
	GetUser(ctx context.Context, id string) (*event.User, error)
	GetUserCount(ctx context.Context) (int, error)
}
