package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newEventsCmd creates the "tock events" subcommand.
func newEventsCmd() *cobra.Command {
	var (
		projectID string
		targetID  string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List simulation events",
		Long:  "Lists injected and ambient events in insertion order.\nFilters combine with AND.",
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

			list, err := rt.events.List(ctx, projectID, targetID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no events")
				return nil
			}
			fmt.Fprintf(out, "%-8s %-24s %-12s %s\n", "TICK", "TYPE", "PROJECT", "TARGETS")
			for _, e := range list {
				project := e.ProjectID
				if project == "" {
					project = "-"
				}
				targets := strings.Join(e.TargetIDs, ",")
				if targets == "" {
					targets = "-"
				}
				fmt.Fprintf(out, "%-8d %-24s %-12s %s\n", e.AtTick, e.Type, project, targets)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "filter by project")
	cmd.Flags().StringVarP(&targetID, "target", "t", "", "filter by targeted worker")
	return cmd
}
