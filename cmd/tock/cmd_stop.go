package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStopCmd creates the "tock stop" subcommand.
func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the simulation",
		Long:  "Marks the simulation stopped and clears the auto-tick flag.\nAll durable state survives; start resumes from the current tick.",
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

			if err := rt.engine.Stop(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "simulation stopped")
			return nil
		},
	}
}
