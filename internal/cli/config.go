package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", "signup-notifier")
	dataDir := filepath.Join(home, ".local", "share", "signup-notifier")

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	configFile := filepath.Join(configDir, "config.toml")

	if _, err := os.Stat(configFile); err == nil {
		fmt.Printf("Config file already exists at %s\n", configFile)
		fmt.Println("Use 'signup-notifier config show' to view current configuration")
		return nil
	}

	if err := os.WriteFile(configFile, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Create OAuth credentials (Desktop app) in the Google Cloud console")
	fmt.Println("  2. Run 'signup-notifier encode credentials.json' and store the output as GOOGLE_CREDENTIALS")
	fmt.Println("  3. Run 'signup-notifier auth' to obtain a token")
	fmt.Println("  4. Set DISCORD_WEBHOOK_URL and schedule 'signup-notifier poll'")

	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No config file found. Run 'signup-notifier config init' to create one.")
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	fmt.Printf("# Config file: %s\n\n", configPath)
	fmt.Println(string(data))
	return nil
}

const defaultConfig = `# signup-notifier configuration
#
# Secrets never live here: GOOGLE_CREDENTIALS, GMAIL_TOKEN, GMAIL_AUTH_CODE
# and DISCORD_WEBHOOK_URL are read from the environment.

[mail]
sender = "loopsbot@mail.loops.so"
check_interval_minutes = 10   # must be >= the scheduler cadence

[token]
path = "~/.local/share/signup-notifier/token.json"
# Optional: push the refreshed token blob back to the scheduler's variable
# store after a save. The blob arrives on stdin.
# propagate_command = ["gh", "secret", "set", "GMAIL_TOKEN"]

[auth]
mode = "deferred"             # "interactive" needs a browser on this host
callback_addr = "localhost:8080"
# Optional: remove a consumed GMAIL_AUTH_CODE from the variable store.
# clear_code_command = ["gh", "secret", "delete", "GMAIL_AUTH_CODE"]

[webhook]
# url = "https://discord.com/api/webhooks/..."   # or DISCORD_WEBHOOK_URL

[ledger]
# Off by default: the reference deployment relies on non-overlapping poll
# windows alone. Enable to skip messages that were already notified.
enabled = false
path = "~/.local/share/signup-notifier/ledger.db"
`
