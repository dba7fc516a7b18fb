package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"golang.org/x/oauth2"

	"github.com/codeclimbers/signup-notifier/internal/auth"
	"github.com/codeclimbers/signup-notifier/internal/config"
)

// buildCredentials assembles the credential manager for a run: the blob
// store over the environment token, and the consent flow matching the
// configured auth mode.
func buildCredentials(cfg *config.Config, logger *slog.Logger) *auth.Manager {
	store := auth.NewBlobStore(cfg.TokenBlob, cfg.Token.Path, cfg.Token.PropagateCommand, logger)

	oauthCfg, authn := buildAuthenticator(cfg, logger)
	return auth.NewManager(oauthCfg, store, authn, logger)
}

func buildAuthenticator(cfg *config.Config, logger *slog.Logger) (*oauth2.Config, auth.Authenticator) {
	oauthCfg, err := auth.LoadClientSecret(cfg.ClientSecretBlob)
	if err != nil {
		// Without the application identity neither refresh nor consent can
		// run; a still-valid persisted token remains usable.
		return &oauth2.Config{}, auth.Unavailable{Reason: err}
	}

	switch cfg.Auth.Mode {
	case config.ModeInteractive:
		return oauthCfg, auth.NewInteractive(oauthCfg, cfg.Auth.CallbackAddr, os.Stdout, logger)
	default:
		clear := clearAuthCode(cfg, logger)
		return oauthCfg, auth.NewDeferred(oauthCfg, cfg.AuthCode, clear, os.Stdout, logger)
	}
}

// clearAuthCode builds the single-use consumption callback for a pending
// authorization code: drop it from this process's environment and, when
// configured, run the operator's command that removes it from the scheduler's
// variable store.
func clearAuthCode(cfg *config.Config, logger *slog.Logger) func() error {
	return func() error {
		if err := os.Unsetenv(config.EnvAuthCode); err != nil {
			return err
		}

		if len(cfg.Auth.ClearCodeCommand) == 0 {
			logger.Warn("authorization code consumed; remove it from the scheduler configuration",
				"variable", config.EnvAuthCode)
			return nil
		}

		cmd := exec.Command(cfg.Auth.ClearCodeCommand[0], cfg.Auth.ClearCodeCommand[1:]...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("clear code command: %w: %s", err, out)
		}
		return nil
	}
}
