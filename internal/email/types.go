// Package email defines the provider-agnostic view of a candidate message.
package email

import (
	"errors"
	"strings"
	"time"
)

// ErrBadDate indicates a Date header was present but could not be parsed.
// Messages carrying it are skipped, not dispatched.
var ErrBadDate = errors.New("unparseable date header")

// Summary is the minimal metadata for a candidate message before window
// validation. It is built from a listing entry plus one metadata fetch.
type Summary struct {
	ID         string
	From       Address
	DateHeader string    // raw Date header value, empty when absent
	Received   time.Time // parsed DateHeader; zero when HasDate is false
	HasDate    bool
}

// Address represents an email address with optional display name.
type Address struct {
	Name  string
	Email string
}

// String returns the formatted address.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

// ParseAddress parses an address string like "Name <email@example.com>".
func ParseAddress(s string) Address {
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "<"); start != -1 {
		if end := strings.Index(s, ">"); end > start {
			return Address{
				Name:  strings.TrimSpace(s[:start]),
				Email: strings.TrimSpace(s[start+1 : end]),
			}
		}
	}

	return Address{Email: s}
}
