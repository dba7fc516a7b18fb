package cli

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeclimbers/signup-notifier/internal/config"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <credentials.json>",
	Short: "Encode a client secret file to a transportable blob",
	Long: `Encode base64-encodes a downloaded OAuth client secret file so it can
be stored as the ` + config.EnvClientSecret + ` variable.

Example:
  signup-notifier encode credentials.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
}

func runEncode(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	fmt.Println(base64.StdEncoding.EncodeToString(data))
	return nil
}
