package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeclimbers/signup-notifier/internal/config"
	"github.com/codeclimbers/signup-notifier/internal/ledger"
	"github.com/codeclimbers/signup-notifier/internal/output"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently forwarded notifications",
	Long: `History lists notifications recorded in the ledger, newest first.
The ledger must be enabled in the configuration ([ledger] enabled = true);
without it, runs leave no record.

Examples:
  signup-notifier history
  signup-notifier history --limit=50 --output=json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if !cfg.Ledger.Enabled {
		fmt.Println("The ledger is disabled; no history is recorded.")
		fmt.Println("Enable it with [ledger] enabled = true in the config file.")
		return nil
	}

	db, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer db.Close()

	ns, err := db.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}

	return output.Notifications(outputFmt, ns)
}
