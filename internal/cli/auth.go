package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeclimbers/signup-notifier/internal/auth"
	"github.com/codeclimbers/signup-notifier/internal/config"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Obtain and persist a Gmail credential",
	Long: `Auth runs the consent flow standalone, without polling.

In interactive mode it opens a browser and completes the exchange in one
invocation. In deferred mode the first run prints the consent URL and exits;
re-run with GMAIL_AUTH_CODE set to complete the exchange.

On success the token is persisted and its transportable blob is printed so
it can be stored as the GMAIL_TOKEN variable for scheduled runs.`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	store := auth.NewBlobStore(cfg.TokenBlob, cfg.Token.Path, cfg.Token.PropagateCommand, logger)
	_, authn := buildAuthenticator(cfg, logger)

	tok, err := authn.Obtain(ctx)
	if err != nil {
		return err
	}

	if err := store.Save(tok); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}

	blob, err := auth.EncodeToken(tok)
	if err != nil {
		return err
	}

	fmt.Println("Authentication successful.")
	fmt.Printf("Token saved to %s\n", cfg.Token.Path)
	fmt.Println()
	fmt.Printf("Set this as %s for scheduled runs:\n", config.EnvTokenBlob)
	fmt.Println(blob)
	return nil
}
