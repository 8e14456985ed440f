package main

import (
	"fmt"
	"log/slog"
	"os"

	"tock/internal/appversion"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root tock command with all subcommands attached.
func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "tock",
		Short:         "Tock virtual-office simulation",
		Long:          "tock runs a deterministic multi-agent office simulation.\nIt advances a tick clock, routes worker messages, and records everything in SQLite.",
		Version:       fmt.Sprintf("tock %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newInitCmd(),
		newStartCmd(),
		newStopCmd(),
		newResetCmd(),
		newAdvanceCmd(),
		newRunCmd(),
		newStatusCmd(),
		newAutoPauseCmd(),
		newInjectCmd(),
		newEventsCmd(),
		newDashCmd(),
	)

	return cmd
}
