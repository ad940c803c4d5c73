package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every pending observation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop unsynced observations without --yes")
			}
			entries, err := appCtx.Queue.List()
			if err != nil {
				return err
			}
			if err := appCtx.Queue.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped %d pending observations\n", len(entries))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping unsynced observations")
	return cmd
}
