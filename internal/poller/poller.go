// Package poller runs one poll-and-dispatch invocation: resolve a
// credential, compute the window, list candidates, validate each message's
// timestamp, and forward alerts. One message's failure never blocks the next.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/codeclimbers/signup-notifier/internal/email"
	"github.com/codeclimbers/signup-notifier/internal/ledger"
	"github.com/codeclimbers/signup-notifier/internal/notify"
	"github.com/codeclimbers/signup-notifier/internal/window"
)

// CredentialSource resolves a usable token for the run.
type CredentialSource interface {
	Credential(ctx context.Context) (*oauth2.Token, error)
}

// Dispatcher forwards one alert to the notification sink.
type Dispatcher interface {
	Send(ctx context.Context, event notify.Event) error
}

// Ledger is the optional cross-run dedup store. Nil disables deduplication,
// which matches the reference deployment.
type Ledger interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	Record(ctx context.Context, n *ledger.Notification) error
}

// Poller wires one invocation's pipeline. The mail source is constructed
// lazily from the resolved credential so that an authentication failure
// aborts before any call reaches the mail source.
type Poller struct {
	Credentials CredentialSource
	NewSource   func(ctx context.Context, tok *oauth2.Token) (email.Source, error)
	Dispatcher  Dispatcher
	Ledger      Ledger

	Sender   string
	Interval time.Duration
	Logger   *slog.Logger
}

// Result summarizes one run. Errors holds the isolated per-message failures;
// they are reported, not fatal.
type Result struct {
	Listed     int
	Dispatched int
	Skipped    int
	Duplicates int
	Errors     []error
}

// Run executes the pipeline for the window ending at now. A returned error is
// fatal to the run (authentication or listing); everything downstream is
// isolated per message and surfaced through the Result.
func (p *Poller) Run(ctx context.Context, now time.Time) (*Result, error) {
	tok, err := p.Credentials.Credential(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication: %w", err)
	}

	src, err := p.NewSource(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("create mail source: %w", err)
	}

	w := window.Compute(now, p.Interval)
	p.Logger.Info("polling", "sender", p.Sender, "window_start", w.Start, "window_end", w.End)

	ids, err := src.ListIDs(ctx, p.Sender, w)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	result := &Result{Listed: len(ids)}
	if len(ids) == 0 {
		p.Logger.Info("no new messages")
		return result, nil
	}

	// Strictly sequential, in listing order.
	for _, id := range ids {
		p.process(ctx, src, w, id, result)
	}

	p.Logger.Info("run complete",
		"listed", result.Listed, "dispatched", result.Dispatched,
		"skipped", result.Skipped, "duplicates", result.Duplicates,
		"errors", len(result.Errors))
	return result, nil
}

func (p *Poller) process(ctx context.Context, src email.Source, w window.Window, id string, result *Result) {
	sum, err := src.GetSummary(ctx, id)
	if err != nil {
		result.Skipped++
		result.Errors = append(result.Errors, err)
		if errors.Is(err, email.ErrBadDate) {
			p.Logger.Warn("skipping message with unparseable timestamp", "message_id", id, "error", err)
		} else {
			p.Logger.Warn("failed to fetch message metadata", "message_id", id, "error", err)
		}
		return
	}

	// The upstream time filter is advisory; enforce the window here.
	if sum.HasDate && !w.Contains(sum.Received) {
		result.Skipped++
		p.Logger.Debug("message outside poll window", "message_id", id, "received", sum.Received)
		return
	}

	if p.Ledger != nil {
		seen, serr := p.Ledger.Seen(ctx, id)
		if serr != nil {
			p.Logger.Warn("ledger lookup failed, proceeding without dedup", "message_id", id, "error", serr)
		} else if seen {
			result.Duplicates++
			p.Logger.Info("already notified, skipping", "message_id", id)
			return
		}
	}

	event := notify.Event{}
	if sum.HasDate {
		event.Timestamp = sum.Received.Format(time.RFC1123Z)
	} else {
		p.Logger.Warn("message has no timestamp header, dispatching with placeholder", "message_id", id)
	}

	if err := p.Dispatcher.Send(ctx, event); err != nil {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Errorf("message %s: %w", id, err))
		if errors.Is(err, notify.ErrNoWebhook) {
			p.Logger.Error("webhook not configured, notification dropped", "message_id", id)
		} else {
			p.Logger.Error("notification delivery failed", "message_id", id, "error", err)
		}
		return
	}

	result.Dispatched++
	p.Logger.Info("notification sent", "message_id", id, "timestamp", event.Timestamp)

	if p.Ledger != nil {
		n := &ledger.Notification{MessageID: id, Sender: sum.From.Email}
		if sum.HasDate {
			received := sum.Received
			n.ReceivedAt = &received
		}
		if err := p.Ledger.Record(ctx, n); err != nil {
			p.Logger.Warn("failed to record notification in ledger", "message_id", id, "error", err)
		}
	}
}
