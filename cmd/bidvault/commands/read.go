package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bidvault/internal/domain"
)

// read <student-id>: fetch and decrypt a student's observations.
func readCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "read <student-id>",
		Short: "Fetch and decrypt a student's observations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			rows, err := appCtx.Viewer.FetchStudentObservations(cmd.Context(), domain.IdentityID(args[0]), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range rows {
				at := r.Metadata.Timestamp.Format(time.RFC3339)
				if r.Err != nil {
					fmt.Fprintf(out, "[%s] %s: %v\n", at, r.Metadata.ObservationID, r.Err)
					continue
				}
				body, err := json.Marshal(r.Observation)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "[%s] %s %s\n", at, r.Metadata.ObservationID, body)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum rows to fetch")
	return cmd
}
