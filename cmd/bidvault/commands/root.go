package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bidvault/internal/app"
)

// closeTimeout bounds the exit beacon.
const closeTimeout = 3 * time.Second

var (
	home       string
	passphrase string
	relayURL   string
	apiKey     string
	logLevel   string
	appCtx     *app.App
)

var errPassphraseRequired = errors.New("passphrase required (-p or BIDVAULT_PASSPHRASE)")

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "bidvault",
		Short:         "Encrypted bidding practice capture and sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Open(home, cmd.ErrOrStderr(), func(cfg *app.Config) {
				if passphrase != "" {
					cfg.Passphrase = passphrase
				}
				if relayURL != "" {
					cfg.RelayURL = relayURL
				}
				if apiKey != "" {
					cfg.APIKey = apiKey
				}
				if logLevel != "" {
					cfg.Log.Level = logLevel
				}
			})
			if err != nil {
				return err
			}
			appCtx = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			return appCtx.Close(ctx)
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.bidvault)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "relay API key")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		initCmd(),
		whoamiCmd(),
		registerCmd(),
		recordCmd(),
		syncCmd(),
		statusCmd(),
		shareCmd(),
		readCmd(),
		clearCmd(),
	)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func requirePassphrase() error {
	if appCtx.Config.Passphrase == "" {
		return errPassphraseRequired
	}
	return nil
}
