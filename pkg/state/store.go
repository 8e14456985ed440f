// Package state persists the simulation control record, the worker roster,
// projects, status overrides, events, counters, and generated artifacts in
// SQLite. Every mutating operation commits before returning, so a process
// restart resumes from the last committed tick.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"tock/pkg/protocol"
)

// Store wraps the state database. All methods are safe for use from a
// single writer plus concurrent readers (SQLite WAL); the engine serializes
// tick mutation above this layer.
type Store struct {
	db *sql.DB
}

// New wraps an open *sql.DB. Call Init before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for read-only consumers (dash, status).
func (s *Store) DB() *sql.DB { return s.db }

// Init applies the schema. Idempotent.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, protocol.SchemaDDL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// --- Simulation control record ---

// GetState reads the committed simulation control record.
func (s *Store) GetState(ctx context.Context) (protocol.SimState, error) {
	var st protocol.SimState
	err := s.db.QueryRowContext(ctx,
		`SELECT current_tick, is_running, auto_tick, auto_pause_enabled FROM sim_state WHERE id=1`,
	).Scan(&st.CurrentTick, &st.IsRunning, &st.AutoTick, &st.AutoPauseEnabled)
	if err != nil {
		return protocol.SimState{}, fmt.Errorf("read sim state: %w", err)
	}
	return st, nil
}

// Start marks the simulation running. Idempotent.
func (s *Store) Start(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sim_state SET is_running=1 WHERE id=1`)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

// Stop halts the simulation and always clears auto_tick with it, preserving
// the invariant auto_tick implies is_running.
func (s *Store) Stop(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sim_state SET is_running=0, auto_tick=0 WHERE id=1`)
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

// EnableAutoTick turns on the auto-tick flag. It fails with an
// InvalidTransitionError when the simulation is not running.
func (s *Store) EnableAutoTick(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sim_state SET auto_tick=1 WHERE id=1 AND is_running=1`)
	if err != nil {
		return fmt.Errorf("enable auto-tick: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("enable auto-tick: %w", err)
	}
	if n == 0 {
		return &protocol.InvalidTransitionError{Op: "enable_auto_tick", Reason: "simulation is not running"}
	}
	return nil
}

// DisableAutoTick clears the auto-tick flag. Always legal.
func (s *Store) DisableAutoTick(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sim_state SET auto_tick=0 WHERE id=1`)
	if err != nil {
		return fmt.Errorf("disable auto-tick: %w", err)
	}
	return nil
}

// SetAutoPause toggles the project auto-pause preference.
func (s *Store) SetAutoPause(ctx context.Context, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sim_state SET auto_pause_enabled=? WHERE id=1`, enabled)
	if err != nil {
		return fmt.Errorf("set auto-pause: %w", err)
	}
	return nil
}

// AdvanceTick increments current_tick by exactly one and appends an audit
// entry. Returns the new tick. Ticks are never skipped.
func (s *Store) AdvanceTick(ctx context.Context, reason string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("advance tick: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var tick int64
	if err := tx.QueryRowContext(ctx,
		`UPDATE sim_state SET current_tick=current_tick+1 WHERE id=1 RETURNING current_tick`,
	).Scan(&tick); err != nil {
		return 0, fmt.Errorf("advance tick: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tick_log (tick, reason) VALUES (?, ?)`, tick, reason); err != nil {
		return 0, fmt.Errorf("log tick: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("advance tick: %w", err)
	}
	return tick, nil
}

// Reset zeros the control record and deletes every run-scoped record: tick
// log, events, overrides, daily counts, plans, reports, and inbox messages.
// The worker roster and project list are preserved.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmts := []string{
		`UPDATE sim_state SET current_tick=0, is_running=0, auto_tick=0 WHERE id=1`,
		`DELETE FROM tick_log`,
		`DELETE FROM events`,
		`DELETE FROM status_overrides`,
		`DELETE FROM daily_counts`,
		`DELETE FROM worker_plans`,
		`DELETE FROM daily_reports`,
		`DELETE FROM inbox_messages`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// TickLogCount returns the number of audit entries.
func (s *Store) TickLogCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tick_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tick log: %w", err)
	}
	return n, nil
}

// --- Status overrides ---

// SetOverride upserts the override for a worker; at most one row per
// worker exists.
func (s *Store) SetOverride(ctx context.Context, o protocol.StatusOverride) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO status_overrides (worker_id, status, until_tick, reason)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(worker_id) DO UPDATE SET
			status=excluded.status, until_tick=excluded.until_tick, reason=excluded.reason`,
		o.WorkerID, string(o.Status), o.UntilTick, o.Reason)
	if err != nil {
		return fmt.Errorf("set override for %s: %w", o.WorkerID, err)
	}
	return nil
}

// GetOverride returns the override for a worker, or nil when none exists.
func (s *Store) GetOverride(ctx context.Context, workerID string) (*protocol.StatusOverride, error) {
	var o protocol.StatusOverride
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT worker_id, status, until_tick, reason FROM status_overrides WHERE worker_id=?`,
		workerID).Scan(&o.WorkerID, &status, &o.UntilTick, &o.Reason)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get override for %s: %w", workerID, err)
	}
	o.Status = protocol.WorkerStatus(status)
	return &o, nil
}

// ListOverrides returns all overrides, keyed by worker.
func (s *Store) ListOverrides(ctx context.Context) (map[string]protocol.StatusOverride, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT worker_id, status, until_tick, reason FROM status_overrides`)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	out := make(map[string]protocol.StatusOverride)
	for rows.Next() {
		var o protocol.StatusOverride
		var status string
		if err := rows.Scan(&o.WorkerID, &status, &o.UntilTick, &o.Reason); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		o.Status = protocol.WorkerStatus(status)
		out[o.WorkerID] = o
	}
	return out, rows.Err()
}

// ClearExpiredOverrides removes and returns every override whose until_tick
// has passed (until_tick <= currentTick).
func (s *Store) ClearExpiredOverrides(ctx context.Context, currentTick int64) ([]protocol.StatusOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
		DELETE FROM status_overrides WHERE until_tick <= ?
		RETURNING worker_id, status, until_tick, reason`, currentTick)
	if err != nil {
		return nil, fmt.Errorf("clear expired overrides: %w", err)
	}
	defer rows.Close()

	var expired []protocol.StatusOverride
	for rows.Next() {
		var o protocol.StatusOverride
		var status string
		if err := rows.Scan(&o.WorkerID, &status, &o.UntilTick, &o.Reason); err != nil {
			return nil, fmt.Errorf("scan expired override: %w", err)
		}
		o.Status = protocol.WorkerStatus(status)
		expired = append(expired, o)
	}
	return expired, rows.Err()
}

// ClearOverride removes a worker's override unconditionally. A missing
// override is not an error: idempotent cleanup must not fail.
func (s *Store) ClearOverride(ctx context.Context, workerID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM status_overrides WHERE worker_id=?`, workerID); err != nil {
		return fmt.Errorf("clear override for %s: %w", workerID, err)
	}
	return nil
}

// --- Roster and projects ---

// SyncWorkers upserts the given roster and deletes workers no longer on it.
func (s *Store) SyncWorkers(ctx context.Context, roster []protocol.Worker) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sync workers: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	keep := make([]any, 0, len(roster))
	for _, w := range roster {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO workers (id, name, email_address, chat_handle, is_team_lead, work_hours)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name=excluded.name, email_address=excluded.email_address,
				chat_handle=excluded.chat_handle, is_team_lead=excluded.is_team_lead,
				work_hours=excluded.work_hours`,
			w.ID, w.Name, w.EmailAddress, w.ChatHandle, w.IsTeamLead, w.WorkHours); err != nil {
			return fmt.Errorf("upsert worker %s: %w", w.ID, err)
		}
		keep = append(keep, w.ID)
	}
	if len(keep) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM workers`); err != nil {
			return fmt.Errorf("clear workers: %w", err)
		}
	} else {
		q := `DELETE FROM workers WHERE id NOT IN (?` + repeat(",?", len(keep)-1) + `)`
		if _, err := tx.ExecContext(ctx, q, keep...); err != nil {
			return fmt.Errorf("prune workers: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sync workers: %w", err)
	}
	return nil
}

// ListWorkers returns the roster ordered by id.
func (s *Store) ListWorkers(ctx context.Context) ([]protocol.Worker, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email_address, chat_handle, is_team_lead, work_hours
		FROM workers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var out []protocol.Worker
	for rows.Next() {
		var w protocol.Worker
		if err := rows.Scan(&w.ID, &w.Name, &w.EmailAddress, &w.ChatHandle, &w.IsTeamLead, &w.WorkHours); err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ReplaceProjects replaces the full project list.
func (s *Store) ReplaceProjects(ctx context.Context, projects []protocol.Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace projects: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects`); err != nil {
		return fmt.Errorf("clear projects: %w", err)
	}
	for _, p := range projects {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projects (name, start_week, duration_weeks, chat_room)
			VALUES (?, ?, ?, ?)`,
			p.Name, p.StartWeek, p.DurationWeeks, p.ChatRoom); err != nil {
			return fmt.Errorf("insert project %s: %w", p.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace projects: %w", err)
	}
	return nil
}

// ListProjects returns all projects ordered by start week.
func (s *Store) ListProjects(ctx context.Context) ([]protocol.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, start_week, duration_weeks, chat_room FROM projects ORDER BY start_week, name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []protocol.Project
	for rows.Next() {
		var p protocol.Project
		if err := rows.Scan(&p.Name, &p.StartWeek, &p.DurationWeeks, &p.ChatRoom); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Events ---

// InsertEvent appends an event to the log. Events are immutable once
// created and ordered by insertion.
func (s *Store) InsertEvent(ctx context.Context, e protocol.Event) error {
	targets, err := json.Marshal(e.TargetIDs)
	if err != nil {
		return fmt.Errorf("marshal targets: %w", err)
	}
	payload := []byte("{}")
	if e.Payload != nil {
		if payload, err = json.Marshal(e.Payload); err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, type, project_id, at_tick, target_ids, payload)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.ProjectID, e.AtTick, string(targets), string(payload)); err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	return nil
}

// ListEvents returns events in insertion order, optionally AND-filtered by
// project and target worker. Empty filter strings match everything.
func (s *Store) ListEvents(ctx context.Context, projectID, targetID string) ([]protocol.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, project_id, at_tick, target_ids, payload FROM events ORDER BY rowid_alias`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []protocol.Event
	for rows.Next() {
		var e protocol.Event
		var typ, targets, payload string
		if err := rows.Scan(&e.ID, &typ, &e.ProjectID, &e.AtTick, &targets, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = protocol.EventType(typ)
		if err := json.Unmarshal([]byte(targets), &e.TargetIDs); err != nil {
			return nil, fmt.Errorf("unmarshal targets: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		if projectID != "" && e.ProjectID != projectID {
			continue
		}
		if targetID != "" && !e.Targets(targetID) {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEvents returns the total number of logged events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// --- Daily counters ---

// GetDailyCount reads the counters for (workerID, dayIndex); a missing row
// is a zero count.
func (s *Store) GetDailyCount(ctx context.Context, workerID string, dayIndex int64) (protocol.DailyCount, error) {
	dc := protocol.DailyCount{WorkerID: workerID, DayIndex: dayIndex}
	err := s.db.QueryRowContext(ctx,
		`SELECT email_count, chat_count FROM daily_counts WHERE worker_id=? AND day_index=?`,
		workerID, dayIndex).Scan(&dc.Email, &dc.Chat)
	if err == sql.ErrNoRows {
		return dc, nil
	}
	if err != nil {
		return dc, fmt.Errorf("get daily count: %w", err)
	}
	return dc, nil
}

// IncrementDailyCount adds one to the channel counter for (workerID, dayIndex).
func (s *Store) IncrementDailyCount(ctx context.Context, workerID string, dayIndex int64, ch protocol.Channel) error {
	col := "chat_count"
	if ch == protocol.ChannelEmail {
		col = "email_count"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_counts (worker_id, day_index, `+col+`)
		VALUES (?, ?, 1)
		ON CONFLICT(worker_id, day_index) DO UPDATE SET `+col+`=`+col+`+1`,
		workerID, dayIndex)
	if err != nil {
		return fmt.Errorf("increment daily count: %w", err)
	}
	return nil
}

// --- Generated artifacts ---

// SavePlan persists a generated plan for a worker at a tick.
func (s *Store) SavePlan(ctx context.Context, workerID string, tick int64, p protocol.Plan) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO worker_plans (worker_id, tick, content, model_used, tokens_used)
		VALUES (?, ?, ?, ?, ?)`,
		workerID, tick, p.Content, p.ModelUsed, p.TokensUsed)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

// SaveDailyReport persists a generated end-of-day report.
func (s *Store) SaveDailyReport(ctx context.Context, workerID string, dayIndex int64, p protocol.Plan) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_reports (worker_id, day_index, content, model_used, tokens_used)
		VALUES (?, ?, ?, ?, ?)`,
		workerID, dayIndex, p.Content, p.ModelUsed, p.TokensUsed)
	if err != nil {
		return fmt.Errorf("save daily report: %w", err)
	}
	return nil
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
