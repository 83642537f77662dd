package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mpolunin/eventwatch/app/event"
)

var _ UserRepository = (*userRepository)(nil)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) ListSubscribers(ctx context.Context) ([]event.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, phone, email, longitude, latitude,
		       categories, radius_km, notify_sms, notify_email, created_at
		FROM users
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	defer rows.Close()

	var users []event.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

func (r *userRepository) GetUser(ctx context.Context, id string) (*event.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, longitude, latitude,
		       categories, radius_km, notify_sms, notify_email, created_at
		FROM users
		WHERE id = ?
	`, id)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (r *userRepository) GetUserCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get user count: %w", err)
	}
	return count, nil
}

func scanUser(row rowScanner) (*event.User, error) {
	var u event.User
	var categories string

	err := row.Scan(
		&u.ID, &u.Name, &u.Phone, &u.Email,
		&u.Location.Longitude, &u.Location.Latitude,
		&categories, &u.Preferences.RadiusKm,
		&u.Preferences.Notifications.SMS, &u.Preferences.Notifications.Email,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Categories are stored as a JSON array; sqlite has no array type.
	if categories != "" {
		if err := json.Unmarshal([]byte(categories), &u.Preferences.Categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories for user %s: %w", u.ID, err)
		}
	}

	return &u, nil
}
