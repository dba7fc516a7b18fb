package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/codeclimbers/signup-notifier/internal/config"
	"github.com/codeclimbers/signup-notifier/internal/email"
	"github.com/codeclimbers/signup-notifier/internal/email/gmail"
	"github.com/codeclimbers/signup-notifier/internal/ledger"
	"github.com/codeclimbers/signup-notifier/internal/notify"
	"github.com/codeclimbers/signup-notifier/internal/poller"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Check the mailbox once and forward alerts",
	Long: `Poll runs one check: it resolves a Gmail credential, lists messages
from the monitored sender within the current poll window, and posts one
alert per qualifying message to the configured webhook.

The exit status is zero once every reachable message has been attempted,
even if individual deliveries failed. It is non-zero only when no usable
credential could be obtained or the listing itself failed.

Examples:
  signup-notifier poll
  signup-notifier poll --env-file .env
  MONITORED_SENDER=bot@example.com signup-notifier poll`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	p := &poller.Poller{
		Credentials: buildCredentials(cfg, logger),
		NewSource: func(ctx context.Context, tok *oauth2.Token) (email.Source, error) {
			oauthCfg, _ := buildAuthenticator(cfg, logger)
			return gmail.NewSource(ctx, oauthCfg, tok)
		},
		Dispatcher: notify.NewDispatcher(cfg.Webhook.URL),
		Sender:     cfg.Mail.Sender,
		Interval:   cfg.Mail.Interval(),
		Logger:     logger,
	}

	if cfg.Ledger.Enabled {
		db, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer db.Close()
		p.Ledger = db
	}

	result, err := p.Run(ctx, time.Now())
	if err != nil {
		return err
	}

	fmt.Println("Poll complete:")
	fmt.Printf("  Messages listed:  %d\n", result.Listed)
	fmt.Printf("  Alerts sent:      %d\n", result.Dispatched)
	if result.Duplicates > 0 {
		fmt.Printf("  Already notified: %d\n", result.Duplicates)
	}
	if result.Skipped > 0 {
		fmt.Printf("  Skipped:          %d\n", result.Skipped)
	}

	if len(result.Errors) > 0 {
		fmt.Println()
		fmt.Printf("Warnings: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - %v\n", e)
		}
	}

	return nil
}
