package store

import (
	"context"
	"time"

	"github.com/lexdesk/deadline-alerts/internal/model"
)

// DeadlineFilter controls filtering for deadline queries.
type DeadlineFilter struct {
	UserID    *string
	Status    *string    // "pending", "completed", "overdue", or nil (all)
	DueBefore *time.Time // only deadlines due strictly before this instant
	DueAfter  *time.Time
	Limit     int
}

// InsertResult reports the outcome of an insert-if-absent attempt.
// Created is false when the uniqueness constraint on
// (user_id, channel, dedupe_key) suppressed the insert; that is a
// normal result, not an error.
type InsertResult struct {
	Created bool
	ID      string
}

// Store defines the persistence interface for deadlines, notification
// records, users, and per-user alert preferences.
type Store interface {
	// === Deadlines ===

	CreateDeadline(ctx context.Context, d model.Deadline) error
	GetDeadlineByID(ctx context.Context, id string) (*model.Deadline, error)
	QueryActiveDeadlines(ctx context.Context, filter DeadlineFilter) ([]model.Deadline, error)
	UpdateDeadlineAcknowledgement(ctx context.Context, id, userID string, at time.Time) error
	MarkOverdueDeadlines(ctx context.Context, now time.Time) (int64, error)
	CountDeadlinesByStatus(ctx context.Context, userID string) (map[string]int, error)

	// === Notification records ===

	InsertNotificationIfAbsent(ctx context.Context, rec model.NotificationRecord) (InsertResult, error)
	MarkNotificationSent(ctx context.Context, id string, at time.Time) error
	MarkNotificationFailed(ctx context.Context, id, errorMessage string) error
	GetUnreadNotifications(ctx context.Context, userID string) ([]model.NotificationRecord, error)
	MarkNotificationRead(ctx context.Context, id string) error

	// === Users and preferences ===

	UpsertUser(ctx context.Context, id, name, email string) error
	GetUserEmail(ctx context.Context, userID string) (string, error)
	GetPreferences(ctx context.Context, userID string) (model.NotificationPreferences, error)
	SavePreferences(ctx context.Context, prefs model.NotificationPreferences) error
}
