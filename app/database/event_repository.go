package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mpolunin/eventwatch/app/event"
)

var _ EventRepository = (*eventRepository)(nil)

type eventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) InsertNew(ctx context.Context, events []event.Event) ([]event.Event, error) {
	// An unreachable store is the one fatal persistence condition;
	// everything past this point is best-effort per item.
	if err := r.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("event store unreachable: %w", err)
	}

	persisted := make([]event.Event, 0, len(events))
	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}

		res, err := r.db.ExecContext(ctx, `
			INSERT INTO events (
				id, title, description, date, longitude, latitude,
				address, category, source, source_url, price, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_url) DO NOTHING
		`, e.ID, e.Title, e.Description, e.Date, e.Location.Longitude, e.Location.Latitude,
			e.Address, string(e.Category), e.Source, e.SourceURL, e.Price, e.CreatedAt)
		if err != nil {
			slog.Warn("Failed to insert event, continuing batch", "source_url", e.SourceURL, "error", err)
			continue
		}

		affected, err := res.RowsAffected()
		if err != nil {
			slog.Warn("Failed to read insert result", "source_url", e.SourceURL, "error", err)
			continue
		}
		if affected > 0 {
			persisted = append(persisted, e)
		} else {
			slog.Debug("Skipped duplicate event", "source_url", e.SourceURL)
		}
	}

	return persisted, nil
}

func (r *eventRepository) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, date, longitude, latitude,
		       address, category, source, source_url, price, created_at
		FROM events
		WHERE id = ?
	`, id)

	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return e, nil
}

func (r *eventRepository) GetRecentEvents(ctx context.Context, limit int) ([]event.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, date, longitude, latitude,
		       address, category, source, source_url, price, created_at
		FROM events
		ORDER BY created_at DESC, date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

func (r *eventRepository) GetEventCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get event count: %w", err)
	}
	return count, nil
}

func (r *eventRepository) AppendFeedback(ctx context.Context, fb event.Feedback) error {
	if fb.Status != event.FeedbackAttended && fb.Status != event.FeedbackNotInterested {
		return fmt.Errorf("invalid feedback status: %q", fb.Status)
	}

	createdAt := fb.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO event_feedback (event_id, user_id, status, created_at)
		VALUES (?, ?, ?, ?)
	`, fb.EventID, fb.UserID, fb.Status, createdAt)
	if err != nil {
		return fmt.Errorf("failed to append feedback: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*event.Event, error) {
	var e event.Event
	var category string

	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Date,
		&e.Location.Longitude, &e.Location.Latitude,
		&e.Address, &category, &e.Source, &e.SourceURL,
		&e.Price, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Category = event.Category(category)
	return &e, nil
}
