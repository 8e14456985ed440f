package protocol

// SchemaDDL defines the SQLite schema for the tock state database.
// Tables: sim_state, tick_log, workers, projects, status_overrides, events,
// inbox_messages, daily_counts, worker_plans, daily_reports.
// Execute against a SQLite database with: db.Exec(SchemaDDL)
const SchemaDDL = `
-- Single-row simulation control record (id is always 1)
CREATE TABLE IF NOT EXISTS sim_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    current_tick INTEGER NOT NULL DEFAULT 0,
    is_running INTEGER NOT NULL DEFAULT 0,
    auto_tick INTEGER NOT NULL DEFAULT 0,
    auto_pause_enabled INTEGER NOT NULL DEFAULT 1
);
INSERT OR IGNORE INTO sim_state (id) VALUES (1);

-- Audit log: one row per tick advance
CREATE TABLE IF NOT EXISTS tick_log (
    id INTEGER PRIMARY KEY,
    tick INTEGER NOT NULL,
    reason TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Worker roster, synced from the roster file
CREATE TABLE IF NOT EXISTS workers (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email_address TEXT NOT NULL,
    chat_handle TEXT NOT NULL,
    is_team_lead INTEGER NOT NULL DEFAULT 0,
    work_hours TEXT NOT NULL DEFAULT ''
);

-- Project timeline (weeks are 1-based simulation weeks)
CREATE TABLE IF NOT EXISTS projects (
    name TEXT PRIMARY KEY,
    start_week INTEGER NOT NULL,
    duration_weeks INTEGER NOT NULL,
    chat_room TEXT NOT NULL DEFAULT ''
);

-- Temporary worker states; at most one per worker
CREATE TABLE IF NOT EXISTS status_overrides (
    worker_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    until_tick INTEGER NOT NULL,
    reason TEXT NOT NULL DEFAULT ''
);

-- Injected and ambient events, insertion-ordered by rowid
CREATE TABLE IF NOT EXISTS events (
    rowid_alias INTEGER PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    project_id TEXT NOT NULL DEFAULT '',
    at_tick INTEGER NOT NULL,
    target_ids TEXT NOT NULL DEFAULT '[]',
    payload TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Durable per-worker inboxes (bounded by the runtime, not the schema)
CREATE TABLE IF NOT EXISTS inbox_messages (
    rowid_alias INTEGER PRIMARY KEY,
    message_id TEXT NOT NULL,
    worker_id TEXT NOT NULL,
    sender_id TEXT NOT NULL,
    sender_name TEXT NOT NULL DEFAULT '',
    subject TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    thread_id TEXT NOT NULL DEFAULT '',
    received_tick INTEGER NOT NULL,
    needs_reply INTEGER NOT NULL DEFAULT 0,
    message_type TEXT NOT NULL,
    channel TEXT NOT NULL,
    replied_tick INTEGER
);
CREATE INDEX IF NOT EXISTS idx_inbox_worker ON inbox_messages(worker_id, rowid_alias);

-- Per-day send counters; a missing key means zero
CREATE TABLE IF NOT EXISTS daily_counts (
    worker_id TEXT NOT NULL,
    day_index INTEGER NOT NULL,
    email_count INTEGER NOT NULL DEFAULT 0,
    chat_count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (worker_id, day_index)
);

-- Generated plan text per worker per tick
CREATE TABLE IF NOT EXISTS worker_plans (
    id INTEGER PRIMARY KEY,
    worker_id TEXT NOT NULL,
    tick INTEGER NOT NULL,
    content TEXT NOT NULL,
    model_used TEXT NOT NULL DEFAULT '',
    tokens_used INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Generated end-of-day reports
CREATE TABLE IF NOT EXISTS daily_reports (
    id INTEGER PRIMARY KEY,
    worker_id TEXT NOT NULL,
    day_index INTEGER NOT NULL,
    content TEXT NOT NULL,
    model_used TEXT NOT NULL DEFAULT '',
    tokens_used INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`
