// Package output renders command results as tables or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/codeclimbers/signup-notifier/internal/ledger"
)

// JSON writes data as indented JSON to stdout.
func JSON(data interface{}) error {
	return JSONTo(os.Stdout, data)
}

// JSONTo writes data as indented JSON to the given writer.
func JSONTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Notifications writes recorded notifications in the requested format.
func Notifications(format string, ns []ledger.Notification) error {
	switch format {
	case "json":
		return JSON(ns)
	case "table", "":
		return NotificationsTable(os.Stdout, ns)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
