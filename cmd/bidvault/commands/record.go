package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bidvault/internal/domain"
)

// record <json>: capture one observation, then try to push the queue.
func recordCmd() *cobra.Command {
	var noSync bool
	cmd := &cobra.Command{
		Use:   "record <json>",
		Short: "Capture an observation and sync it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var obs domain.Observation
			dec := json.NewDecoder(strings.NewReader(args[0]))
			dec.UseNumber()
			if err := dec.Decode(&obs); err != nil {
				return fmt.Errorf("observation must be a JSON object: %w", err)
			}
			meta, err := appCtx.Observations.Record(cmd.Context(), obs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recorded %s (session %s)\n", meta.ObservationID, meta.SessionID)
			if noSync {
				return nil
			}
			if err := appCtx.Sync.Sync(cmd.Context()); err != nil {
				fmt.Fprintf(out, "Queued; sync will retry: %v\n", err)
				return nil
			}
			fmt.Fprintln(out, "Synced")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "only queue the observation")
	return cmd
}
