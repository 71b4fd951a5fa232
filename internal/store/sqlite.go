package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/lexdesk/deadline-alerts/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database exists per connection; keep the pool at one
	// so every caller sees the same schema.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// CreateDeadline inserts a new deadline record. If the deadline has no
// ID, a new UUID is generated.
func (s *SQLiteStore) CreateDeadline(ctx context.Context, d model.Deadline) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Status == "" {
		d.Status = model.DeadlineStatusPending
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deadlines (
			id, user_id, title, description, process_number,
			due_at, status, acknowledged_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Title, d.Description, d.ProcessNumber,
		d.DueAt.UTC(), d.Status, nullableTime(d.AcknowledgedAt),
		d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating deadline %s: %w", d.ID, err)
	}

	return nil
}

// GetDeadlineByID retrieves a single deadline, or nil if none exists.
func (s *SQLiteStore) GetDeadlineByID(ctx context.Context, id string) (*model.Deadline, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT * FROM deadlines WHERE id = ?", id)

	d, err := scanDeadline(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting deadline %s: %w", id, err)
	}

	return &d, nil
}

// QueryActiveDeadlines retrieves deadlines matching the provided
// filter, ordered by due date ascending.
func (s *SQLiteStore) QueryActiveDeadlines(ctx context.Context, filter DeadlineFilter) ([]model.Deadline, error) {
	var conditions []string
	var args []interface{}

	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	} else {
		conditions = append(conditions, "status = ?")
		args = append(args, model.DeadlineStatusPending)
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, "due_at < ?")
		args = append(args, filter.DueBefore.UTC())
	}
	if filter.DueAfter != nil {
		conditions = append(conditions, "due_at >= ?")
		args = append(args, filter.DueAfter.UTC())
	}

	query := "SELECT * FROM deadlines WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY due_at ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying deadlines: %w", err)
	}
	defer rows.Close()

	var deadlines []model.Deadline
	for rows.Next() {
		d, err := scanDeadlineRows(rows)
		if err != nil {
			return nil, err
		}
		deadlines = append(deadlines, d)
	}

	return deadlines, rows.Err()
}

// UpdateDeadlineAcknowledgement records the acknowledgment timestamp
// for a deadline owned by the given user.
func (s *SQLiteStore) UpdateDeadlineAcknowledgement(ctx context.Context, id, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deadlines
		SET acknowledged_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		at.UTC(), time.Now().UTC(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("acknowledging deadline %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("acknowledging deadline %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("deadline %s not found for user %s", id, userID)
	}

	return nil
}

// MarkOverdueDeadlines flips pending deadlines whose due date has
// passed to overdue. Returns the number of rows updated.
func (s *SQLiteStore) MarkOverdueDeadlines(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deadlines
		SET status = ?, updated_at = ?
		WHERE status = ? AND due_at < ?`,
		model.DeadlineStatusOverdue, now.UTC(),
		model.DeadlineStatusPending, now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("marking overdue deadlines: %w", err)
	}

	return res.RowsAffected()
}

// CountDeadlinesByStatus returns the number of deadlines per status
// for one user. Statuses with no deadlines are absent from the map.
func (s *SQLiteStore) CountDeadlinesByStatus(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT status, COUNT(*) AS n
		FROM deadlines
		WHERE user_id = ?
		GROUP BY status`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("counting deadlines for user %s: %w", userID, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning deadline count: %w", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

// InsertNotificationIfAbsent inserts a notification record unless one
// already exists for the same (user_id, channel, dedupe_key). A
// suppressed insert returns Created=false with a nil error; any other
// failure propagates.
func (s *SQLiteStore) InsertNotificationIfAbsent(ctx context.Context, rec model.NotificationRecord) (InsertResult, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = model.NotificationStatusPending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return InsertResult{}, fmt.Errorf("marshaling notification metadata: %w", err)
	}
	if rec.Metadata == nil {
		metadata = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (
			id, user_id, channel, deadline_id, dedupe_key,
			status, severity, title, message,
			sent_at, error_message, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Channel, rec.DeadlineID, rec.DedupeKey,
		rec.Status, rec.Severity, rec.Title, rec.Message,
		nullableTime(rec.SentAt), rec.ErrorMessage, string(metadata),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return InsertResult{Created: false}, nil
		}
		return InsertResult{}, fmt.Errorf("inserting notification: %w", err)
	}

	return InsertResult{Created: true, ID: rec.ID}, nil
}

// MarkNotificationSent transitions a record to sent with a timestamp.
func (s *SQLiteStore) MarkNotificationSent(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = ?, sent_at = ?, error_message = ''
		WHERE id = ?`,
		model.NotificationStatusSent, at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s sent: %w", id, err)
	}
	return nil
}

// MarkNotificationFailed transitions a record to failed with the
// transport's error message.
func (s *SQLiteStore) MarkNotificationFailed(ctx context.Context, id, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = ?, error_message = ?
		WHERE id = ?`,
		model.NotificationStatusFailed, errorMessage, id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s failed: %w", id, err)
	}
	return nil
}

// GetUnreadNotifications retrieves a user's in-app notifications that
// have been sent but not yet read, newest first.
func (s *SQLiteStore) GetUnreadNotifications(ctx context.Context, userID string) ([]model.NotificationRecord, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT * FROM notifications
		WHERE user_id = ? AND channel = ? AND status = ?
		ORDER BY created_at DESC`,
		userID, model.ChannelInApp, model.NotificationStatusSent,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unread notifications: %w", err)
	}
	defer rows.Close()

	var records []model.NotificationRecord
	for rows.Next() {
		rec, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// MarkNotificationRead marks a single in-app notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET status = ? WHERE id = ?",
		model.NotificationStatusRead, id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return nil
}

// UpsertUser inserts or replaces a user row.
func (s *SQLiteStore) UpsertUser(ctx context.Context, id, name, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO users (id, name, email) VALUES (?, ?, ?)`,
		id, name, email,
	)
	if err != nil {
		return fmt.Errorf("upserting user %s: %w", id, err)
	}
	return nil
}

// GetUserEmail returns the account email for a user, or "" if the user
// is unknown.
func (s *SQLiteStore) GetUserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.db.GetContext(ctx, &email, "SELECT email FROM users WHERE id = ?", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("getting email for user %s: %w", userID, err)
	}
	return email, nil
}

// GetPreferences returns a user's alert preferences, falling back to
// the defaults when the user has never saved any.
func (s *SQLiteStore) GetPreferences(ctx context.Context, userID string) (model.NotificationPreferences, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT * FROM user_preferences WHERE user_id = ?", userID,
	)

	var (
		prefs     model.NotificationPreferences
		enabled   int
		alertDays string
	)
	err := row.Scan(&prefs.UserID, &enabled, &prefs.EmailOverride, &alertDays, &prefs.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DefaultPreferences(userID), nil
		}
		return model.NotificationPreferences{}, fmt.Errorf("getting preferences for user %s: %w", userID, err)
	}

	prefs.EmailEnabled = enabled != 0
	if err := json.Unmarshal([]byte(alertDays), &prefs.AlertDays); err != nil {
		return model.NotificationPreferences{}, fmt.Errorf("unmarshaling alert days: %w", err)
	}

	return prefs, nil
}

// SavePreferences inserts or replaces a user's alert preferences.
func (s *SQLiteStore) SavePreferences(ctx context.Context, prefs model.NotificationPreferences) error {
	alertDays, err := json.Marshal(prefs.AlertDays)
	if err != nil {
		return fmt.Errorf("marshaling alert days: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO user_preferences (
			user_id, email_enabled, email_override, alert_days, updated_at
		) VALUES (?, ?, ?, ?, ?)`,
		prefs.UserID, boolToInt(prefs.EmailEnabled), prefs.EmailOverride,
		string(alertDays), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving preferences for user %s: %w", prefs.UserID, err)
	}

	return nil
}

// rowScanner is satisfied by both sqlx.Row and sqlx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanDeadlineFields scans a deadline row from any row scanner.
func scanDeadlineFields(row rowScanner) (model.Deadline, error) {
	var (
		d       model.Deadline
		ackAt   sql.NullTime
		dueAt   time.Time
		created time.Time
		updated time.Time
	)

	err := row.Scan(
		&d.ID, &d.UserID, &d.Title, &d.Description, &d.ProcessNumber,
		&dueAt, &d.Status, &ackAt, &created, &updated,
	)
	if err != nil {
		return model.Deadline{}, err
	}

	d.DueAt = dueAt
	d.CreatedAt = created
	d.UpdatedAt = updated
	if ackAt.Valid {
		t := ackAt.Time
		d.AcknowledgedAt = &t
	}

	return d, nil
}

// scanDeadline scans a single deadline from a sqlx.Row.
func scanDeadline(row *sqlx.Row) (model.Deadline, error) {
	return scanDeadlineFields(row)
}

// scanDeadlineRows scans a deadline from a sqlx.Rows result set.
func scanDeadlineRows(rows *sqlx.Rows) (model.Deadline, error) {
	d, err := scanDeadlineFields(rows)
	if err != nil {
		return model.Deadline{}, fmt.Errorf("scanning deadline row: %w", err)
	}
	return d, nil
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.NotificationRecord, error) {
	var (
		rec      model.NotificationRecord
		sentAt   sql.NullTime
		metadata string
	)

	err := rows.Scan(
		&rec.ID, &rec.UserID, &rec.Channel, &rec.DeadlineID, &rec.DedupeKey,
		&rec.Status, &rec.Severity, &rec.Title, &rec.Message,
		&sentAt, &rec.ErrorMessage, &metadata, &rec.CreatedAt,
	)
	if err != nil {
		return model.NotificationRecord{}, fmt.Errorf("scanning notification row: %w", err)
	}

	if sentAt.Valid {
		t := sentAt.Time
		rec.SentAt = &t
	}
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
			return model.NotificationRecord{}, fmt.Errorf("unmarshaling notification metadata: %w", err)
		}
	}

	return rec, nil
}

// nullableTime converts an optional timestamp for SQLite storage.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
