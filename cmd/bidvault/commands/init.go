package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"bidvault/internal/app"
	"bidvault/internal/domain"
	"bidvault/internal/services/identity"
)

func initCmd() *cobra.Command {
	var (
		role  string
		email string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate identity keys and store them securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if appCtx.Config.SecretsBackend == app.SecretsFile {
				if err := identity.CheckPassphrase(appCtx.Config.Passphrase); err != nil {
					return err
				}
			}
			id, fp, err := appCtx.IDs.CreateIdentity(domain.Role(role), email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Identity created.\nID: %s\nRole: %s\nFingerprint: %s\n", id.ID, id.Role, fp)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "student, teacher or admin")
	cmd.Flags().StringVar(&email, "email", "", "email used to detect duplicate registrations")
	return cmd
}
