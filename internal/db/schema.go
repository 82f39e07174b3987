package db

// Schema creates the tables and indexes used by the store. Statements
// are idempotent so Init can run on every startup.
const Schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	source TEXT NOT NULL,
	context TEXT,
	priority TEXT NOT NULL,
	priority_score INTEGER DEFAULT 0,
	category TEXT NOT NULL,
	deadline TEXT,
	scheduled_date TEXT,
	estimated_time_minutes INTEGER DEFAULT 30,
	actual_time_minutes INTEGER,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	completed_at TEXT,
	tags TEXT,
	notes TEXT,
	reminder_sent INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS oauth_tokens (
	provider TEXT PRIMARY KEY,
	token_json TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS calendar_events (
	task_id TEXT PRIMARY KEY,
	provider TEXT,
	event_id TEXT,
	created_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks(priority_score DESC);
`
