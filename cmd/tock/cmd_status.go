package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tock/pkg/protocol"
	"tock/pkg/simclock"
)

// newStatusCmd creates the "tock status" subcommand.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current simulation state",
		Long:  "Displays the clock position, run flags, roster size,\nactive status overrides, and the auto-pause verdict.",
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

			st, err := rt.store.GetState(ctx)
			if err != nil {
				return err
			}
			workers, err := rt.store.ListWorkers(ctx)
			if err != nil {
				return err
			}
			overrides, err := rt.store.ListOverrides(ctx)
			if err != nil {
				return err
			}
			pause, err := rt.engine.AutoPauseStatus(ctx)
			if err != nil {
				return err
			}

			// Styles collapse to plain text when stdout is not a terminal.
			color := isatty.IsTerminal(os.Stdout.Fd())
			label := lipgloss.NewStyle()
			running := lipgloss.NewStyle()
			stopped := lipgloss.NewStyle()
			if color {
				label = label.Bold(true)
				running = running.Foreground(lipgloss.Color("10"))
				stopped = stopped.Foreground(lipgloss.Color("9"))
			}

			out := cmd.OutOrStdout()
			hpd := rt.cfg.Sim.HoursPerDay
			stateStr := stopped.Render("stopped")
			if st.IsRunning {
				stateStr = running.Render("running")
			}
			fmt.Fprintf(out, "%s %s\n", label.Render("simulation:"), stateStr)
			fmt.Fprintf(out, "%s tick %d (day %d, week %d, %s)\n",
				label.Render("clock:"), st.CurrentTick,
				simclock.DayIndex(st.CurrentTick, hpd),
				simclock.CurrentWeek(st.CurrentTick, hpd),
				simclock.TickToTimeOfDay(st.CurrentTick, hpd))
			fmt.Fprintf(out, "%s auto_tick=%v auto_pause=%v\n",
				label.Render("flags:"), st.AutoTick, st.AutoPauseEnabled)
			fmt.Fprintf(out, "%s %d workers, %d with active overrides\n",
				label.Render("roster:"), len(workers), countActive(overrides, st.CurrentTick))
			fmt.Fprintf(out, "%s %s\n", label.Render("auto-pause:"), pause.Reason)

			for id, o := range overrides {
				if o.ActiveAt(st.CurrentTick) {
					fmt.Fprintf(out, "  %s: %s until tick %d (%s)\n", id, o.Status, o.UntilTick, o.Reason)
				}
			}
			return nil
		},
	}
}

func countActive(overrides map[string]protocol.StatusOverride, tick int64) int {
	n := 0
	for _, o := range overrides {
		if o.ActiveAt(tick) {
			n++
		}
	}
	return n
}
