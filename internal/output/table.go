package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/codeclimbers/signup-notifier/internal/ledger"
)

// NotificationsTable writes recorded notifications as a formatted table.
func NotificationsTable(w io.Writer, ns []ledger.Notification) error {
	if len(ns) == 0 {
		fmt.Fprintln(w, "No notifications recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MESSAGE\tSENDER\tRECEIVED\tNOTIFIED")
	fmt.Fprintln(tw, "-------\t------\t--------\t--------")

	for _, n := range ns {
		received := "-"
		if n.ReceivedAt != nil {
			received = n.ReceivedAt.Format("Jan 02 15:04")
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			truncate(n.MessageID, 20),
			truncate(n.Sender, 30),
			received,
			n.NotifiedAt.Format("Jan 02 15:04"),
		)
	}

	return tw.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
