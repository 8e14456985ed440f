package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tock/pkg/protocol"
	"tock/pkg/simclock"
)

// newAdvanceCmd creates the "tock advance" subcommand.
func newAdvanceCmd() *cobra.Command {
	var (
		ticks  int
		reason string
	)

	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Advance the simulation in the foreground",
		Long:  "Runs the full tick pipeline for the requested number of ticks\nand prints a summary of what happened.",
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

			if err := rt.engine.Load(ctx); err != nil {
				return err
			}

			report, err := rt.engine.AdvanceWithReason(ctx, ticks, reason)
			printReport(cmd, report, rt.cfg.Sim.HoursPerDay)
			return err
		},
	}
	cmd.Flags().IntVarP(&ticks, "ticks", "n", 1, "number of ticks to advance")
	cmd.Flags().StringVar(&reason, "reason", "manual", "audit reason recorded in the tick log")
	return cmd
}

func printReport(cmd *cobra.Command, r protocol.TickReport, hoursPerDay int) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "advanced %d tick(s), now at tick %d (day %d, %s)\n",
		r.TicksAdvanced, r.FinalTick,
		simclock.DayIndex(r.FinalTick, hoursPerDay),
		simclock.TickToTimeOfDay(r.FinalTick, hoursPerDay))
	fmt.Fprintf(out, "  emails sent:    %d\n", r.EmailsSent)
	fmt.Fprintf(out, "  chats sent:     %d\n", r.ChatsSent)
	fmt.Fprintf(out, "  rejected:       %d\n", r.Rejected)
	fmt.Fprintf(out, "  ambient events: %d\n", r.AmbientEvents)
	fmt.Fprintf(out, "  workers skipped: %d\n", r.SkippedWorkers)
	fmt.Fprintf(out, "  replies marked: %d\n", r.RepliesMarked)
}
