package email

import (
	"context"

	"github.com/codeclimbers/signup-notifier/internal/window"
)

// Source is a mail backend that can list candidate messages and fetch their
// metadata. The listing's time filter is advisory: backends may apply coarser
// granularity than the window, so callers must re-check Summary.Received
// against the window themselves.
type Source interface {
	// ListIDs returns the IDs of messages from sender within the window,
	// in backend order. No chronological ordering is guaranteed.
	ListIDs(ctx context.Context, sender string, w window.Window) ([]string, error)

	// GetSummary fetches the metadata for one message. A missing Date
	// header yields a Summary with HasDate false; an unparseable one
	// yields ErrBadDate.
	GetSummary(ctx context.Context, id string) (*Summary, error)
}
