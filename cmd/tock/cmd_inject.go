package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tock/pkg/protocol"
)

// newInjectCmd creates the "tock inject" subcommand.
func newInjectCmd() *cobra.Command {
	var (
		eventType string
		projectID string
		targets   []string
		payload   []string
	)

	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Inject a simulation event",
		Long:  "Records an explicit event at the current tick. Targeted workers\nsee it as a plan adjustment on their next active tick.",
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
			payloadMap, err := parsePayload(payload)
			if err != nil {
				return err
			}

			e, err := rt.events.Inject(ctx, protocol.Event{
				Type:      protocol.EventType(eventType),
				ProjectID: projectID,
				TargetIDs: targets,
				AtTick:    st.CurrentTick,
				Payload:   payloadMap,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "injected %s event %s at tick %d\n", e.Type, e.ID, e.AtTick)
			return nil
		},
	}
	cmd.Flags().StringVarP(&eventType, "type", "t", "", "event type (sick_leave, client_feature_request, blocker, meeting)")
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project the event belongs to")
	cmd.Flags().StringSliceVar(&targets, "target", nil, "worker id to target (repeatable)")
	cmd.Flags().StringArrayVar(&payload, "payload", nil, "payload entry as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// parsePayload turns key=value flags into a payload map.
func parsePayload(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		k, v, ok := strings.Cut(entry, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("payload entry %q is not key=value", entry)
		}
		out[k] = v
	}
	return out, nil
}
