// Package notify delivers formatted alerts to a chat webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoWebhook indicates the sink URL is not configured. Dispatch
// short-circuits on it without attempting a network call.
var ErrNoWebhook = errors.New("webhook URL not configured")

// placeholderTimestamp marks a notification whose source message carried no
// discoverable Date header.
const placeholderTimestamp = "(no timestamp found)"

// Event is one alert to deliver. Transient; never persisted.
type Event struct {
	Timestamp string // formatted message timestamp, or empty when unknown
}

// DeliveryError reports a webhook response other than the expected
// acknowledgment.
type DeliveryError struct {
	Status int
	Body   string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook returned status %d: %s", e.Status, e.Body)
}

// payload is the webhook request body.
type payload struct {
	Content string `json:"content"`
}

// Dispatcher posts alerts to a Discord-style webhook. Success is the
// webhook's 204 No Content acknowledgment specifically, not any 2xx.
type Dispatcher struct {
	url        string
	httpClient *http.Client
}

// NewDispatcher creates a dispatcher for the given sink URL, which may be
// empty; Send reports ErrNoWebhook in that case.
func NewDispatcher(url string) *Dispatcher {
	return &Dispatcher{
		url: url,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Send posts one alert. It performs a single synchronous POST with no retry;
// callers isolate failures per message.
func (d *Dispatcher) Send(ctx context.Context, event Event) error {
	if d.url == "" {
		return ErrNoWebhook
	}

	body, err := json.Marshal(payload{Content: renderContent(event)})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &DeliveryError{Status: resp.StatusCode, Body: string(respBody)}
	}

	return nil
}

// renderContent builds the human-readable alert text.
func renderContent(event Event) string {
	ts := event.Timestamp
	if ts == "" {
		ts = placeholderTimestamp
	}
	return fmt.Sprintf(
		"Someone just signed up for CodeClimbers via the website! 🚀\n\nTimestamp: %s\n\n[[[ Keep Climbing ]]]", ts)
}
