package gmail

import (
	"fmt"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/codeclimbers/signup-notifier/internal/email"
)

// dateFormats covers the RFC 5322 Date header variants seen in the wild.
var dateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
}

// convertMessage maps a Gmail metadata response to a Summary. A message
// without a Date header is still returned (HasDate false) so it can be
// forwarded with a placeholder downstream; a header that exists but cannot be
// parsed yields email.ErrBadDate.
func convertMessage(msg *gmail.Message) (*email.Summary, error) {
	sum := &email.Summary{ID: msg.Id}

	if msg.Payload == nil {
		return sum, nil
	}

	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "from":
			sum.From = email.ParseAddress(header.Value)
		case "date":
			sum.DateHeader = header.Value
		}
	}

	if sum.DateHeader == "" {
		return sum, nil
	}

	received, err := parseDate(sum.DateHeader)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w: %q", msg.Id, email.ErrBadDate, sum.DateHeader)
	}

	sum.Received = received
	sum.HasDate = true
	return sum, nil
}

func parseDate(s string) (time.Time, error) {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}
