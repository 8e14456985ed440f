package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newAutoPauseCmd creates the "tock autopause" subcommand group.
func newAutoPauseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autopause",
		Short: "Control project-timeline auto-pause",
		Long:  "When enabled, the background loop pauses once no project is\nactive in the current week and none starts later.",
	}
	cmd.AddCommand(
		newAutoPauseSetCmd("on", true),
		newAutoPauseSetCmd("off", false),
		newAutoPauseStatusCmd(),
	)
	return cmd
}

func newAutoPauseSetCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Turn auto-pause %s", use),
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

			if err := rt.store.SetAutoPause(ctx, enabled); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "auto-pause %s\n", use)
			return nil
		},
	}
}

func newAutoPauseStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the auto-pause verdict for the current week",
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

			status, err := rt.engine.AutoPauseStatus(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "enabled:         %v\n", status.Enabled)
			fmt.Fprintf(out, "should pause:    %v\n", status.ShouldPause)
			fmt.Fprintf(out, "current week:    %d\n", status.CurrentWeek)
			fmt.Fprintf(out, "active projects: %d\n", status.ActiveProjects)
			fmt.Fprintf(out, "future projects: %d\n", status.FutureProjects)
			fmt.Fprintf(out, "reason:          %s\n", status.Reason)
			return nil
		},
	}
}
