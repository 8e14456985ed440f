package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newResetCmd creates the "tock reset" subcommand.
func newResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the simulation to tick zero",
		Long:  "Deletes all run state: tick history, events, overrides, counters,\nplans, reports, and inboxes. The roster and projects are kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Fprintln(cmd.OutOrStdout(), "this deletes all run history; pass --force to confirm")
				return nil
			}
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

			if err := rt.engine.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "simulation reset to tick 0")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip the confirmation prompt")
	return cmd
}
