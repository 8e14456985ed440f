package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"tock/pkg/config"
	"tock/pkg/state"
)

const sampleRoster = `workers:
  - id: alice
    name: Alice
    email: alice@office.test
    chat_handle: alice
    team_lead: true
    work_hours: "09:00-17:00"
  - id: bob
    name: Bob
    email: bob@office.test
    chat_handle: bob
    work_hours: "09:00-17:00"
projects:
  - name: apollo
    start_week: 1
    duration_weeks: 4
    chat_room: proj-apollo
`

const sampleActions = `# Pre-planned actions, pulled by the engine as the clock reaches each tick.
actions: []
`

// newInitCmd creates the "tock init" subcommand.
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the tock home directory and state database",
		Long:  "Creates $TOCK_HOME, initializes the SQLite schema,\nand writes starter config, roster, and actions files when absent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(paths.TockHome, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", paths.TockHome, err)
			}

			db, err := openDB(paths.StateDBPath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			if err := state.New(db).Init(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "state database ready at %s\n", paths.StateDBPath)

			if err := writeIfAbsent(paths.ConfigPath, defaultConfigTOML()); err != nil {
				return err
			}
			if err := writeIfAbsent(paths.RosterPath, []byte(sampleRoster)); err != nil {
				return err
			}
			if err := writeIfAbsent(paths.ActionsPath, []byte(sampleActions)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tock home ready at %s\n", paths.TockHome)
			return nil
		},
	}
}

func defaultConfigTOML() []byte {
	data, err := toml.Marshal(config.Default())
	if err != nil {
		// Default() is a static literal; marshalling it cannot fail.
		panic(err)
	}
	return data
}

// writeIfAbsent writes content to path unless a file already exists there.
func writeIfAbsent(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, content, 0o644)
}
