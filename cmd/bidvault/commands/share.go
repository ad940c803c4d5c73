package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bidvault/internal/domain"
	"bidvault/internal/services/grant"
)

// share <viewer-id>: wrap our symmetric key for a teacher or admin.
func shareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share <viewer-id>",
		Short: "Grant a teacher or admin access to your observations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			g, err := appCtx.Grants.Share(cmd.Context(), domain.IdentityID(args[0]))
			if errors.Is(err, grant.ErrGrantExists) {
				fmt.Fprintf(cmd.OutOrStdout(), "Already shared with %s\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Shared with %s\n", g.GranteeID)
			return nil
		},
	}
	return cmd
}
