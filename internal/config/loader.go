package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Environment variable names, enumerated. These are the complete external
// configuration surface of a scheduled run.
const (
	EnvClientSecret = "GOOGLE_CREDENTIALS"
	EnvTokenBlob    = "GMAIL_TOKEN"
	EnvSender       = "MONITORED_SENDER"
	EnvInterval     = "CHECK_INTERVAL_MINUTES"
	EnvWebhookURL   = "DISCORD_WEBHOOK_URL"
	EnvAuthCode     = "GMAIL_AUTH_CODE"
)

// Load resolves configuration: defaults, then the TOML file if it exists,
// then environment overrides. A missing config file is not an error — a
// scheduler deployment is expected to run on environment variables alone.
func Load(path string) (*Config, error) {
	expandedPath, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expand config path: %w", err)
	}

	cfg := Default()

	data, err := os.ReadFile(expandedPath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", expandedPath, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("expand paths: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays the enumerated environment variables.
func (c *Config) applyEnv() error {
	c.ClientSecretBlob = os.Getenv(EnvClientSecret)
	c.TokenBlob = os.Getenv(EnvTokenBlob)
	c.AuthCode = os.Getenv(EnvAuthCode)

	if v := os.Getenv(EnvSender); v != "" {
		c.Mail.Sender = v
	}
	if v := os.Getenv(EnvWebhookURL); v != "" {
		c.Webhook.URL = v
	}
	if v := os.Getenv(EnvInterval); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q", EnvInterval, v)
		}
		c.Mail.CheckIntervalMinutes = n
	}

	return nil
}

// Validate checks that the configuration is usable. The webhook URL is
// deliberately not required here: its absence is a dispatch-time
// configuration error, not a startup failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Mail.Sender == "" {
		errs = append(errs, errors.New("mail.sender is required"))
	}
	if c.Mail.CheckIntervalMinutes <= 0 {
		errs = append(errs, errors.New("mail.check_interval_minutes must be positive"))
	}
	if c.Auth.Mode != ModeInteractive && c.Auth.Mode != ModeDeferred {
		errs = append(errs, fmt.Errorf("auth.mode must be %q or %q, got %q",
			ModeInteractive, ModeDeferred, c.Auth.Mode))
	}
	if c.Auth.Mode == ModeInteractive && c.Auth.CallbackAddr == "" {
		errs = append(errs, errors.New("auth.callback_addr is required in interactive mode"))
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		errs = append(errs, errors.New("ledger.path is required when the ledger is enabled"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// expandPath expands ~ to the home directory.
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}

func (c *Config) expandPaths() error {
	var err error

	c.Token.Path, err = expandPath(c.Token.Path)
	if err != nil {
		return err
	}

	c.Ledger.Path, err = expandPath(c.Ledger.Path)
	if err != nil {
		return err
	}

	return nil
}

// EnsureDirectories creates the directories the token file and ledger live in.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Token.Path)}
	if c.Ledger.Enabled {
		dirs = append(dirs, filepath.Dir(c.Ledger.Path))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
