package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds all resolved tock state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	TockHome    string // ~/.tock or TOCK_HOME
	StateDBPath string // state.db or TOCK_DB_PATH
	ConfigPath  string // tock.toml or TOCK_CONFIG
	RosterPath  string // roster.yaml or TOCK_ROSTER
	ActionsPath string // actions.yaml or TOCK_ACTIONS
}

// ResolvePaths returns all tock paths, respecting env var overrides.
// Environment variables:
//   - TOCK_HOME: base directory for all tock state (default: ~/.tock)
//   - TOCK_DB_PATH: simulation state database (default: $TOCK_HOME/state.db)
//   - TOCK_CONFIG: runtime config file (default: $TOCK_HOME/tock.toml)
//   - TOCK_ROSTER: roster file (default: $TOCK_HOME/roster.yaml)
//   - TOCK_ACTIONS: scripted actions file (default: $TOCK_HOME/actions.yaml)
func ResolvePaths() (*Paths, error) {
	home, err := resolveTockHome()
	if err != nil {
		return nil, err
	}
	return &Paths{
		TockHome:    home,
		StateDBPath: resolvePathWithEnv("TOCK_DB_PATH", home, "state.db"),
		ConfigPath:  resolvePathWithEnv("TOCK_CONFIG", home, "tock.toml"),
		RosterPath:  resolvePathWithEnv("TOCK_ROSTER", home, "roster.yaml"),
		ActionsPath: resolvePathWithEnv("TOCK_ACTIONS", home, "actions.yaml"),
	}, nil
}

// resolveTockHome returns the tock home directory from TOCK_HOME or ~/.tock.
func resolveTockHome() (string, error) {
	if v := os.Getenv("TOCK_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".tock"), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
