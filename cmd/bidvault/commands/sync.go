package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"bidvault/internal/syncengine"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push pending observations to the relay now",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := appCtx.Sync.Sync(cmd.Context())
			printStatus(cmd.OutOrStdout(), appCtx.Sync.Status())
			return err
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sync state and pending count",
		RunE: func(cmd *cobra.Command, args []string) error {
			printStatus(cmd.OutOrStdout(), appCtx.Sync.Status())
			return nil
		},
	}
	return cmd
}

func printStatus(w io.Writer, st syncengine.Status) {
	fmt.Fprintf(w, "State: %s\nPending: %d\nRetries: %d\n", st.State, st.PendingCount, st.RetryCount)
	if !st.LastSyncAt.IsZero() {
		fmt.Fprintf(w, "Last sync: %s\n", st.LastSyncAt.Format(time.RFC3339))
	}
	if st.LastError != nil {
		fmt.Fprintf(w, "Last error: %v\n", st.LastError)
	}
	if st.Conflict != nil {
		fmt.Fprintf(w, "Conflict: this email belongs to %s\n", st.Conflict.ExistingID)
	}
}
