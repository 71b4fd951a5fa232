package model

import "time"

// Notification delivery channels.
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
)

// Notification record status constants. A record transitions
// pending -> sent or pending -> failed; sent and failed are terminal
// for the dispatch pipeline. "read" is set later by the in-app surface.
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
	NotificationStatusRead    = "read"
)

// NotificationRecord is a persisted delivery attempt for one deadline
// alert on one channel. The tuple (user_id, channel, dedupe_key) is
// unique at the storage layer; that uniqueness is the sole mechanism
// preventing duplicate delivery.
type NotificationRecord struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	Channel    string `json:"channel" db:"channel"`
	DeadlineID string `json:"deadline_id" db:"deadline_id"`
	DedupeKey  string `json:"dedupe_key" db:"dedupe_key"`
	Status     string `json:"status" db:"status"`
	Severity   string `json:"severity" db:"severity"`
	Title      string `json:"title" db:"title"`
	Message    string `json:"message" db:"message"`

	SentAt       *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`

	// Metadata carries free-form channel details (e.g., destination
	// address, SMTP message id). Stored as JSON.
	Metadata map[string]string `json:"metadata,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
