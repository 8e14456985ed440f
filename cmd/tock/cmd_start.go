package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tock/pkg/config"
)

// newStartCmd creates the "tock start" subcommand.
func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the simulation",
		Long:  "Syncs the roster and projects into the state database\nand marks the simulation running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			paths, err := ResolvePaths()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(ctx, paths)
			if err != nil {
				return err
			}
			defer rt.Close()

			roster, err := config.LoadRoster(paths.RosterPath)
			if err != nil {
				return fmt.Errorf("loading roster: %w", err)
			}
			if err := rt.store.SyncWorkers(ctx, roster.Workers); err != nil {
				return err
			}
			if err := rt.store.ReplaceProjects(ctx, roster.Projects); err != nil {
				return err
			}
			if err := rt.store.SetAutoPause(ctx, rt.cfg.Sim.AutoPause); err != nil {
				return err
			}

			if err := rt.engine.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "simulation started with %d workers and %d projects\n",
				len(roster.Workers), len(roster.Projects))
			return nil
		},
	}
}
