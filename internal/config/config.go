// Package config resolves the notifier's configuration from an optional TOML
// file overridden by environment variables. On a scheduler the environment is
// the primary channel; the file mainly serves local runs.
package config

import "time"

// Auth flow modes.
const (
	ModeInteractive = "interactive"
	ModeDeferred    = "deferred"
)

// Config is the resolved application configuration. Each component receives
// the values it needs at construction; nothing reads configuration globally.
type Config struct {
	Mail    MailConfig    `toml:"mail"`
	Token   TokenConfig   `toml:"token"`
	Auth    AuthConfig    `toml:"auth"`
	Webhook WebhookConfig `toml:"webhook"`
	Ledger  LedgerConfig  `toml:"ledger"`

	// Environment-only inputs; never written to the config file.
	ClientSecretBlob string `toml:"-"` // GOOGLE_CREDENTIALS
	TokenBlob        string `toml:"-"` // GMAIL_TOKEN
	AuthCode         string `toml:"-"` // GMAIL_AUTH_CODE, consumed once
}

// MailConfig selects what to poll for.
type MailConfig struct {
	Sender               string `toml:"sender"`
	CheckIntervalMinutes int    `toml:"check_interval_minutes"`
}

// Interval returns the poll window width.
func (m MailConfig) Interval() time.Duration {
	return time.Duration(m.CheckIntervalMinutes) * time.Minute
}

// TokenConfig controls token persistence.
type TokenConfig struct {
	Path             string   `toml:"path"`
	PropagateCommand []string `toml:"propagate_command"`
}

// AuthConfig selects the consent flow for re-authentication.
type AuthConfig struct {
	Mode             string   `toml:"mode"`
	CallbackAddr     string   `toml:"callback_addr"`
	ClearCodeCommand []string `toml:"clear_code_command"`
}

// WebhookConfig points at the notification sink.
type WebhookConfig struct {
	URL string `toml:"url"`
}

// LedgerConfig controls the optional cross-run deduplication ledger.
type LedgerConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns a Config with the reference deployment's defaults.
func Default() *Config {
	return &Config{
		Mail: MailConfig{
			Sender:               "loopsbot@mail.loops.so",
			CheckIntervalMinutes: 10,
		},
		Token: TokenConfig{
			Path: "~/.local/share/signup-notifier/token.json",
		},
		Auth: AuthConfig{
			Mode:         ModeDeferred,
			CallbackAddr: "localhost:8080",
		},
		Ledger: LedgerConfig{
			Enabled: false,
			Path:    "~/.local/share/signup-notifier/ledger.db",
		},
	}
}
