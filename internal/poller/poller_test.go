package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/codeclimbers/signup-notifier/internal/email"
	"github.com/codeclimbers/signup-notifier/internal/ledger"
	"github.com/codeclimbers/signup-notifier/internal/notify"
	"github.com/codeclimbers/signup-notifier/internal/window"
)

type fakeCredentials struct {
	tok *oauth2.Token
	err error
}

func (c *fakeCredentials) Credential(context.Context) (*oauth2.Token, error) {
	return c.tok, c.err
}

type fakeSource struct {
	ids       []string
	listErr   error
	summaries map[string]*email.Summary
	fetchErr  map[string]error
	listCalls int
	getCalls  int
}

func (s *fakeSource) ListIDs(_ context.Context, _ string, _ window.Window) ([]string, error) {
	s.listCalls++
	return s.ids, s.listErr
}

func (s *fakeSource) GetSummary(_ context.Context, id string) (*email.Summary, error) {
	s.getCalls++
	if err, ok := s.fetchErr[id]; ok {
		return nil, err
	}
	return s.summaries[id], nil
}

type fakeDispatcher struct {
	events []notify.Event
	errFor map[int]error // send index -> error
	calls  int
}

func (d *fakeDispatcher) Send(_ context.Context, event notify.Event) error {
	idx := d.calls
	d.calls++
	if err, ok := d.errFor[idx]; ok {
		return err
	}
	d.events = append(d.events, event)
	return nil
}

var testNow = time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)

func newTestPoller(src *fakeSource, disp *fakeDispatcher) *Poller {
	return &Poller{
		Credentials: &fakeCredentials{tok: &oauth2.Token{AccessToken: "A"}},
		NewSource: func(context.Context, *oauth2.Token) (email.Source, error) {
			return src, nil
		},
		Dispatcher: disp,
		Sender:     "loopsbot@mail.loops.so",
		Interval:   10 * time.Minute,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func summary(id string, received time.Time) *email.Summary {
	return &email.Summary{
		ID:         id,
		From:       email.Address{Email: "loopsbot@mail.loops.so"},
		DateHeader: received.Format(time.RFC1123Z),
		Received:   received,
		HasDate:    true,
	}
}

func TestRunEmptyListing(t *testing.T) {
	src := &fakeSource{}
	disp := &fakeDispatcher{}

	result, err := newTestPoller(src, disp).Run(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Listed != 0 || result.Dispatched != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
	if disp.calls != 0 {
		t.Errorf("dispatcher called %d times, want 0", disp.calls)
	}
}

func TestRunSingleMessage(t *testing.T) {
	received := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{
		ids:       []string{"m1"},
		summaries: map[string]*email.Summary{"m1": summary("m1", received)},
	}
	disp := &fakeDispatcher{}

	result, err := newTestPoller(src, disp).Run(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Dispatched != 1 {
		t.Fatalf("Dispatched = %d, want 1", result.Dispatched)
	}
	if len(disp.events) != 1 {
		t.Fatalf("dispatched %d events, want 1", len(disp.events))
	}
	if got := disp.events[0].Timestamp; got != "Mon, 01 Jan 2024 10:00:00 +0000" {
		t.Errorf("Timestamp = %q, want the formatted header", got)
	}
}

func TestRunAuthFailureAbortsBeforeListing(t *testing.T) {
	src := &fakeSource{ids: []string{"m1"}}
	disp := &fakeDispatcher{}

	p := newTestPoller(src, disp)
	p.Credentials = &fakeCredentials{err: errors.New("no usable credential")}
	sourceBuilt := false
	p.NewSource = func(context.Context, *oauth2.Token) (email.Source, error) {
		sourceBuilt = true
		return src, nil
	}

	_, err := p.Run(context.Background(), testNow)
	if err == nil || !strings.Contains(err.Error(), "authentication") {
		t.Fatalf("Run error = %v, want authentication failure", err)
	}
	if sourceBuilt {
		t.Error("mail source built despite auth failure")
	}
	if src.listCalls != 0 || src.getCalls != 0 {
		t.Errorf("mail source called (%d list, %d get), want zero", src.listCalls, src.getCalls)
	}
}

func TestRunListingFailureIsFatal(t *testing.T) {
	src := &fakeSource{listErr: errors.New("rate limited")}

	_, err := newTestPoller(src, &fakeDispatcher{}).Run(context.Background(), testNow)
	if err == nil {
		t.Fatal("expected fatal error on listing failure")
	}
}

func TestRunPostFiltersWindow(t *testing.T) {
	inside := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	before := time.Date(2024, 1, 1, 9, 54, 0, 0, time.UTC)
	atEnd := testNow // End is exclusive
	src := &fakeSource{
		ids: []string{"in", "early", "at-end"},
		summaries: map[string]*email.Summary{
			"in":     summary("in", inside),
			"early":  summary("early", before),
			"at-end": summary("at-end", atEnd),
		},
	}
	disp := &fakeDispatcher{}

	result, err := newTestPoller(src, disp).Run(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Dispatched != 1 {
		t.Errorf("Dispatched = %d, want 1 (only the in-window message)", result.Dispatched)
	}
	if result.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", result.Skipped)
	}
}

func TestRunMissingDateDispatchesPlaceholder(t *testing.T) {
	src := &fakeSource{
		ids: []string{"nodate"},
		summaries: map[string]*email.Summary{
			"nodate": {ID: "nodate", From: email.Address{Email: "loopsbot@mail.loops.so"}},
		},
	}
	disp := &fakeDispatcher{}

	result, err := newTestPoller(src, disp).Run(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Dispatched != 1 {
		t.Fatalf("Dispatched = %d, want 1", result.Dispatched)
	}
	if disp.events[0].Timestamp != "" {
		t.Errorf("Timestamp = %q, want empty for placeholder rendering", disp.events[0].Timestamp)
	}
}

func TestRunBadDateSkipped(t *testing.T) {
	src := &fakeSource{
		ids:      []string{"bad"},
		fetchErr: map[string]error{"bad": email.ErrBadDate},
	}
	disp := &fakeDispatcher{}

	result, err := newTestPoller(src, disp).Run(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Dispatched != 0 {
		t.Errorf("Dispatched = %d, want 0", result.Dispatched)
	}
	if result.Skipped != 1 || len(result.Errors) != 1 {
		t.Errorf("Skipped = %d, Errors = %d; want 1 and 1", result.Skipped, len(result.Errors))
	}
	if disp.calls != 0 {
		t.Errorf("dispatcher called %d times, want 0", disp.calls)
	}
}

func TestRunFetchFailureIsolated(t *testing.T) {
	received := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{
		ids:       []string{"broken", "ok"},
		fetchErr:  map[string]error{"broken": errors.New("api error")},
		summaries: map[string]*email.Summary{"ok": summary("ok", received)},
	}
	disp := &fakeDispatcher{}

	result, err := newTestPoller(src, disp).Run(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Dispatched != 1 {
		t.Errorf("Dispatched = %d, want the second message delivered", result.Dispatched)
	}
}

func TestRunDeliveryFailureDoesNotBlockNext(t *testing.T) {
	received := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{
		ids: []string{"m1", "m2", "m3"},
		summaries: map[string]*email.Summary{
			"m1": summary("m1", received),
			"m2": summary("m2", received),
			"m3": summary("m3", received),
		},
	}
	disp := &fakeDispatcher{errFor: map[int]error{0: &notify.DeliveryError{Status: 500}}}

	result, err := newTestPoller(src, disp).Run(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if disp.calls != 3 {
		t.Errorf("dispatcher called %d times, want all 3 attempted", disp.calls)
	}
	if result.Dispatched != 2 {
		t.Errorf("Dispatched = %d, want 2", result.Dispatched)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %d, want 1", len(result.Errors))
	}
}

func TestRunNoWebhookStillSucceeds(t *testing.T) {
	received := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{
		ids: []string{"m1", "m2"},
		summaries: map[string]*email.Summary{
			"m1": summary("m1", received),
			"m2": summary("m2", received),
		},
	}
	disp := &fakeDispatcher{errFor: map[int]error{
		0: notify.ErrNoWebhook,
		1: notify.ErrNoWebhook,
	}}

	result, err := newTestPoller(src, disp).Run(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Run must not be fatal without a webhook: %v", err)
	}
	if result.Dispatched != 0 {
		t.Errorf("Dispatched = %d, want 0", result.Dispatched)
	}
	if len(result.Errors) != 2 {
		t.Errorf("Errors = %d, want one per dropped message", len(result.Errors))
	}
}

type fakeLedger struct {
	seen     map[string]bool
	recorded []*ledger.Notification
}

func (l *fakeLedger) Seen(_ context.Context, id string) (bool, error) {
	return l.seen[id], nil
}

func (l *fakeLedger) Record(_ context.Context, n *ledger.Notification) error {
	l.recorded = append(l.recorded, n)
	return nil
}

func TestRunLedgerDedup(t *testing.T) {
	received := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{
		ids: []string{"old", "new"},
		summaries: map[string]*email.Summary{
			"old": summary("old", received),
			"new": summary("new", received),
		},
	}
	disp := &fakeDispatcher{}
	led := &fakeLedger{seen: map[string]bool{"old": true}}

	p := newTestPoller(src, disp)
	p.Ledger = led

	result, err := p.Run(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", result.Duplicates)
	}
	if result.Dispatched != 1 {
		t.Errorf("Dispatched = %d, want 1", result.Dispatched)
	}
	if len(led.recorded) != 1 || led.recorded[0].MessageID != "new" {
		t.Errorf("recorded = %+v, want only the new message", led.recorded)
	}
}
