package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newRunCmd creates the "tock run" subcommand.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the background auto-tick loop in the foreground",
		Long:  "Starts the simulation if needed and ticks it on the configured\ninterval until interrupted or auto-pause engages.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			paths, err := ResolvePaths()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(ctx, paths)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.engine.Start(ctx); err != nil {
				return err
			}
			if err := rt.engine.StartAutoTick(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ticking every %s; press Ctrl-C to stop\n",
				rt.cfg.Sim.AutoTickInterval())

			<-ctx.Done()
			rt.engine.StopAutoTick(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "auto-tick loop stopped")
			return nil
		},
	}
}
