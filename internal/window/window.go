// Package window computes the time interval a single poll run covers.
package window

import "time"

// Window is the half-open interval [Start, End) queried in one run.
type Window struct {
	Start time.Time
	End   time.Time
}

// Compute builds the window ending at now and reaching back by the check
// interval. It is recomputed fresh every run; a window is never carried over
// from a previous invocation.
//
// The scheduler's cadence must not exceed the interval, or consecutive
// windows leave gaps. That constraint is operational and not enforced here.
func Compute(now time.Time, interval time.Duration) Window {
	return Window{
		Start: now.Add(-interval),
		End:   now,
	}
}

// Contains reports whether t falls inside the half-open interval.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Duration returns the window width.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
