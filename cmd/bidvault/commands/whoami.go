package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"bidvault/internal/services/identity"
)

func whoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the current identity and its fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			id, err := appCtx.IDs.CurrentIdentity()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID: %s\nRole: %s\n", id.ID, id.Role)
			if id.Email != "" {
				fmt.Fprintf(out, "Email: %s\n", id.Email)
			}
			fmt.Fprintf(out, "Registered: %t\nFingerprint: %s\n", id.Registered, identity.Fingerprint(id))
			return nil
		},
	}
	return cmd
}
