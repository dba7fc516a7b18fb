package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
)

// Manager resolves a usable credential for one run: load the persisted token,
// use it directly if still valid, refresh it if possible, and otherwise fall
// back to the configured consent flow. Every newly minted token is persisted
// before it is returned.
type Manager struct {
	cfg    *oauth2.Config
	store  Store
	auth   Authenticator
	logger *slog.Logger

	now     func() time.Time
	refresh func(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
}

// NewManager wires a credential manager over the given store and fallback
// authenticator.
func NewManager(cfg *oauth2.Config, store Store, auth Authenticator, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:    cfg,
		store:  store,
		auth:   auth,
		logger: logger,
		now:    time.Now,
	}
	m.refresh = func(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
		return cfg.TokenSource(ctx, tok).Token()
	}
	return m
}

// Credential returns a token usable against the mail source. A valid
// persisted token is returned without any network round-trip. An error means
// no usable credential could be obtained and the run must abort before
// querying anything.
func (m *Manager) Credential(ctx context.Context) (*oauth2.Token, error) {
	tok, err := m.store.Load()
	if err != nil && !errors.Is(err, ErrNoToken) {
		return nil, fmt.Errorf("load token: %w", err)
	}

	if m.valid(tok) {
		return tok, nil
	}

	if tok != nil && tok.RefreshToken != "" {
		fresh, rerr := m.refresh(ctx, tok)
		if rerr == nil {
			preserveRefreshToken(fresh, tok)
			m.persist(fresh)
			m.logger.Info("access token refreshed", "expiry", fresh.Expiry)
			return fresh, nil
		}
		m.logger.Warn("token refresh failed, falling back to re-authentication", "error", rerr)
	}

	fresh, aerr := m.auth.Obtain(ctx)
	if aerr != nil {
		return nil, fmt.Errorf("obtain credential: %w", aerr)
	}

	m.persist(fresh)
	m.logger.Info("new token obtained", "expiry", fresh.Expiry)
	return fresh, nil
}

// valid reports whether the token can be used without a network round-trip.
func (m *Manager) valid(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return m.now().Before(tok.Expiry)
}

func (m *Manager) persist(tok *oauth2.Token) {
	if err := m.store.Save(tok); err != nil {
		// A save failure costs a refresh on the next run, not this one.
		m.logger.Warn("failed to persist token", "error", err)
	}
}

// preserveRefreshToken carries the prior refresh token forward when the
// provider's refresh response omits it.
func preserveRefreshToken(fresh, prior *oauth2.Token) {
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = prior.RefreshToken
	}
}
