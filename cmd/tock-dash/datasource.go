package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"tock/pkg/config"
	"tock/pkg/protocol"
	"tock/pkg/simclock"
	"tock/pkg/state"

	_ "modernc.org/sqlite"
)

// Snapshot is one read of everything the dashboard renders.
type Snapshot struct {
	State       protocol.SimState
	Workers     []protocol.Worker
	Overrides   map[string]protocol.StatusOverride
	Events      []protocol.Event
	Counts      map[string]protocol.DailyCount // today's sends per worker
	HoursPerDay int
}

// defaultDBPath returns the state database path from env or ~/.tock/state.db.
func defaultDBPath() string {
	if v := os.Getenv("TOCK_DB_PATH"); v != "" {
		return v
	}
	base := os.Getenv("TOCK_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".tock")
	}
	return filepath.Join(base, "state.db")
}

// defaultConfigPath mirrors the CLI's config resolution.
func defaultConfigPath() string {
	if v := os.Getenv("TOCK_CONFIG"); v != "" {
		return v
	}
	base := os.Getenv("TOCK_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".tock")
	}
	return filepath.Join(base, "tock.toml")
}

// FetchSnapshot reads the simulation state from the sqlite database at
// dbPath. The read path never writes: a dashboard must not mutate the run
// it is watching.
func FetchSnapshot(dbPath string) (*Snapshot, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state db %s: %w", dbPath, err)
	}
	defer db.Close() //nolint:errcheck // best-effort close on read-only query path

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping state db %s: %w", dbPath, err)
	}

	st := state.New(db)
	simState, err := st.GetState(ctx)
	if err != nil {
		return nil, err
	}
	workers, err := st.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := st.ListOverrides(ctx)
	if err != nil {
		return nil, err
	}
	events, err := st.ListEvents(ctx, "", "")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(defaultConfigPath())
	if err != nil {
		cfg = config.Default()
	}

	day := simclock.DayIndex(simState.CurrentTick, cfg.Sim.HoursPerDay)
	counts := make(map[string]protocol.DailyCount, len(workers))
	for _, w := range workers {
		dc, err := st.GetDailyCount(ctx, w.ID, day)
		if err != nil {
			return nil, err
		}
		counts[w.ID] = dc
	}

	return &Snapshot{
		State:       simState,
		Workers:     workers,
		Overrides:   overrides,
		Events:      events,
		Counts:      counts,
		HoursPerDay: cfg.Sim.HoursPerDay,
	}, nil
}
