// Package auth manages the OAuth2 credential lifecycle across stateless runs:
// loading the persisted token blob, refreshing expired tokens, and falling
// back to a consent flow when no usable token can be recovered.
package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

// ErrNoToken indicates no persisted token is available. It is the "absent"
// outcome, distinct from an I/O failure.
var ErrNoToken = errors.New("no token available")

// Scopes are the OAuth scopes requested from the mail source.
var Scopes = []string{gmail.GmailReadonlyScope}

// Store persists the OAuth2 token between invocations. The persisted value is
// the only shared state across runs; writes are last-writer-wins.
type Store interface {
	// Load returns the persisted token, or ErrNoToken when absent.
	Load() (*oauth2.Token, error)

	// Save persists the token, overwriting any prior value.
	Save(tok *oauth2.Token) error
}

// BlobStore reads the token from a base64 JSON blob supplied through the
// environment and writes refreshed tokens back to a local file. Saving may
// also run an operator-configured propagation command that pushes the encoded
// blob to the scheduler's variable store for the next invocation; that push
// is best-effort.
type BlobStore struct {
	Blob          string   // base64 token JSON from the environment, may be empty
	Path          string   // writable token file, read preferentially on load
	PropagateCmd  []string // optional command receiving the encoded blob on stdin
	Logger        *slog.Logger
	propagateWait time.Duration
}

// NewBlobStore creates a store over the given env blob and token file path.
func NewBlobStore(blob, path string, propagateCmd []string, logger *slog.Logger) *BlobStore {
	return &BlobStore{
		Blob:          blob,
		Path:          path,
		PropagateCmd:  propagateCmd,
		Logger:        logger,
		propagateWait: 30 * time.Second,
	}
}

// Load returns the token from the local file if one exists (it is fresher
// than the environment blob when a prior run on this host refreshed it), and
// otherwise decodes the environment blob. A malformed blob is treated as
// absent, never parsed leniently.
func (s *BlobStore) Load() (*oauth2.Token, error) {
	if s.Path != "" {
		data, err := os.ReadFile(s.Path)
		switch {
		case err == nil:
			tok, derr := decodeTokenJSON(data)
			if derr != nil {
				s.Logger.Warn("ignoring malformed token file", "path", s.Path, "error", derr)
			} else {
				return tok, nil
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read token file: %w", err)
		}
	}

	if s.Blob == "" {
		return nil, ErrNoToken
	}

	tok, err := DecodeToken(s.Blob)
	if err != nil {
		s.Logger.Warn("ignoring malformed token blob", "error", err)
		return nil, ErrNoToken
	}
	return tok, nil
}

// Save writes the token to the local file and then propagates the encoded
// blob if a propagation command is configured. Propagation failures are
// logged and never returned: the next run can still recover via refresh.
func (s *BlobStore) Save(tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	if s.Path != "" {
		if err := os.WriteFile(s.Path, data, 0600); err != nil {
			return fmt.Errorf("write token file: %w", err)
		}
	}

	s.propagate(data)
	return nil
}

func (s *BlobStore) propagate(tokenJSON []byte) {
	if len(s.PropagateCmd) == 0 {
		return
	}

	blob := base64.StdEncoding.EncodeToString(tokenJSON)

	ctx, cancel := context.WithTimeout(context.Background(), s.propagateWait)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.PropagateCmd[0], s.PropagateCmd[1:]...)
	cmd.Stdin = bytes.NewReader([]byte(blob))
	if out, err := cmd.CombinedOutput(); err != nil {
		s.Logger.Warn("token propagation failed",
			"command", s.PropagateCmd[0], "error", err, "output", string(out))
		return
	}

	s.Logger.Info("token propagated", "command", s.PropagateCmd[0])
}

// DecodeToken decodes a base64 token blob into an OAuth2 token. The blob is
// parsed strictly as JSON; it is never evaluated as anything else.
func DecodeToken(blob string) (*oauth2.Token, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return decodeTokenJSON(raw)
}

func decodeTokenJSON(raw []byte) (*oauth2.Token, error) {
	tok := &oauth2.Token{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token JSON: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("token blob has neither access nor refresh token")
	}
	return tok, nil
}

// EncodeToken encodes a token as a base64 JSON blob suitable for the
// environment channel.
func EncodeToken(tok *oauth2.Token) (string, error) {
	data, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// LoadClientSecret decodes the base64 client-secret blob and builds the
// OAuth2 config for the mail source's consent flow.
func LoadClientSecret(blob string) (*oauth2.Config, error) {
	if blob == "" {
		return nil, errors.New("client secret blob is empty")
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decode client secret base64: %w", err)
	}

	cfg, err := google.ConfigFromJSON(raw, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secret: %w", err)
	}
	return cfg, nil
}
