package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bidvault/internal/relay"
)

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Publish your identity to the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			id, err := appCtx.IDs.CurrentIdentity()
			if err != nil {
				return err
			}
			err = appCtx.IDs.EnsureRegistered(cmd.Context(), id.ID)
			var conflict *relay.RegistrationConflictError
			if errors.As(err, &conflict) {
				return fmt.Errorf("%w; this email is registered as %s", err, conflict.ExistingID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s with relay\n", id.ID)
			return nil
		},
	}
	return cmd
}
