// Package gmail implements the email.Source interface over the Gmail API.
package gmail

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/codeclimbers/signup-notifier/internal/email"
	"github.com/codeclimbers/signup-notifier/internal/window"
)

const userID = "me"

// listPageSize bounds one listing page; the poll window keeps result sets
// small, paging handles the rest.
const listPageSize = 100

// Source queries Gmail for candidate messages.
type Source struct {
	service *gmail.Service
}

// NewSource builds an authenticated Gmail source. The underlying HTTP client
// gets an explicit timeout so a hung call cannot block the run until the
// platform default fires.
func NewSource(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*Source, error) {
	client := oauth2.NewClient(ctx, cfg.TokenSource(ctx, tok))
	client.Timeout = 30 * time.Second

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Source{service: svc}, nil
}

// ListIDs lists messages from sender within the window, following pagination.
// Gmail's after/before operators work at day granularity for date strings but
// accept epoch seconds, which this query uses; the filter is still advisory
// and callers re-validate each message's own timestamp.
func (s *Source) ListIDs(ctx context.Context, sender string, w window.Window) ([]string, error) {
	query := buildQuery(sender, w)

	var ids []string
	pageToken := ""

	for {
		call := s.service.Users.Messages.List(userID).
			Q(query).
			MaxResults(listPageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}

		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return ids, nil
}

// GetSummary fetches one message's metadata headers and converts them to a
// Summary.
func (s *Source) GetSummary(ctx context.Context, id string) (*email.Summary, error) {
	msg, err := s.service.Users.Messages.Get(userID, id).
		Format("METADATA").
		MetadataHeaders("From", "Date").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}

	return convertMessage(msg)
}

// buildQuery combines the sender filter with the window bounds in Gmail's
// native epoch-seconds syntax.
func buildQuery(sender string, w window.Window) string {
	return fmt.Sprintf("from:%s after:%d before:%d", sender, w.Start.Unix(), w.End.Unix())
}
