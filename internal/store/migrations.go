package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS deadlines (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL REFERENCES users(id),
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	process_number  TEXT NOT NULL DEFAULT '',
	due_at          DATETIME NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending'
		CHECK(status IN ('pending', 'completed', 'overdue')),
	acknowledged_at DATETIME,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_deadlines_user_id ON deadlines(user_id);
CREATE INDEX IF NOT EXISTS idx_deadlines_status ON deadlines(status);
CREATE INDEX IF NOT EXISTS idx_deadlines_due_at ON deadlines(due_at);

CREATE TABLE IF NOT EXISTS notifications (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	channel       TEXT NOT NULL CHECK(channel IN ('in_app', 'email')),
	deadline_id   TEXT NOT NULL,
	dedupe_key    TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending'
		CHECK(status IN ('pending', 'sent', 'failed', 'read')),
	severity      TEXT NOT NULL DEFAULT 'info',
	title         TEXT NOT NULL DEFAULT '',
	message       TEXT NOT NULL DEFAULT '',
	sent_at       DATETIME,
	error_message TEXT NOT NULL DEFAULT '',
	metadata      TEXT NOT NULL DEFAULT '{}',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, channel, dedupe_key)
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
CREATE INDEX IF NOT EXISTS idx_notifications_deadline_id ON notifications(deadline_id);
CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status);

CREATE TABLE IF NOT EXISTS user_preferences (
	user_id        TEXT PRIMARY KEY REFERENCES users(id),
	email_enabled  INTEGER NOT NULL DEFAULT 1 CHECK(email_enabled IN (0, 1)),
	email_override TEXT NOT NULL DEFAULT '',
	alert_days     TEXT NOT NULL DEFAULT '[7,3,1,0]',
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_deadlines_status_due
	ON deadlines(status, due_at);

CREATE INDEX IF NOT EXISTS idx_notifications_user_status
	ON notifications(user_id, status);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
