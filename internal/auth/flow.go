package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ErrAuthPending indicates the deferred flow has emitted a consent URL and is
// waiting for an authorization code to arrive on a later run.
var ErrAuthPending = errors.New("authorization pending: complete the consent flow and re-run with the authorization code set")

// Authenticator obtains a fresh token through a consent exchange. Which
// implementation is wired depends on the deployment: Interactive needs an
// operator with a browser, Deferred works on a headless scheduler.
type Authenticator interface {
	Obtain(ctx context.Context) (*oauth2.Token, error)
}

// Interactive runs the full consent flow in one invocation: open the consent
// URL in a browser, receive the code on a loopback callback server, and
// exchange it.
type Interactive struct {
	Config *oauth2.Config
	Addr   string // callback listen address, e.g. "localhost:8080"
	Out    io.Writer
	Logger *slog.Logger

	timeout time.Duration
}

// NewInteractive creates an interactive authenticator listening on addr.
func NewInteractive(cfg *oauth2.Config, addr string, out io.Writer, logger *slog.Logger) *Interactive {
	return &Interactive{
		Config:  cfg,
		Addr:    addr,
		Out:     out,
		Logger:  logger,
		timeout: 5 * time.Minute,
	}
}

// Obtain blocks until the operator completes consent or the timeout fires.
func (a *Interactive) Obtain(ctx context.Context) (*oauth2.Token, error) {
	state := uuid.NewString()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			errCh <- errors.New("state parameter mismatch in callback")
			http.Error(w, "invalid state", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			errCh <- errors.New("callback carried no authorization code")
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You can close this window.</p></body></html>")
		codeCh <- code
	})

	srv := &http.Server{Addr: a.Addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	cfg := *a.Config
	cfg.RedirectURL = fmt.Sprintf("http://%s/callback", a.Addr)

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	fmt.Fprintln(a.Out, "Opening browser for consent...")
	fmt.Fprintln(a.Out, "If the browser does not open, visit:")
	fmt.Fprintln(a.Out, authURL)
	openBrowser(authURL, a.Logger)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(a.timeout):
		return nil, errors.New("timed out waiting for consent callback")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// Deferred splits the consent flow across two invocations. The first run
// emits the consent URL and aborts; a later run finds the authorization code
// in its configuration, exchanges it, and clears it so it is consumed exactly
// once.
type Deferred struct {
	Config *oauth2.Config
	Code   string       // pending authorization code, empty when none
	Clear  func() error // invoked after a successful exchange
	Out    io.Writer
	Logger *slog.Logger

	exchange func(ctx context.Context, code string) (*oauth2.Token, error)
}

// NewDeferred creates a deferred authenticator around a pending code (which
// may be empty) and a clear callback for its single-use consumption.
func NewDeferred(cfg *oauth2.Config, code string, clear func() error, out io.Writer, logger *slog.Logger) *Deferred {
	d := &Deferred{
		Config: cfg,
		Code:   code,
		Clear:  clear,
		Out:    out,
		Logger: logger,
	}
	d.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
		c := *cfg
		c.RedirectURL = manualRedirectURL
		return c.Exchange(ctx, code)
	}
	return d
}

// manualRedirectURL is the copy-paste redirect target for flows with no
// reachable callback server.
const manualRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

// Obtain exchanges the pending code if one is present, otherwise prints the
// consent instructions and returns ErrAuthPending so the run aborts cleanly
// before touching the mail source.
func (d *Deferred) Obtain(ctx context.Context) (*oauth2.Token, error) {
	if d.Code == "" {
		cfg := *d.Config
		cfg.RedirectURL = manualRedirectURL
		authURL := cfg.AuthCodeURL(uuid.NewString(), oauth2.AccessTypeOffline)

		fmt.Fprintln(d.Out, "Authorization required. Visit:")
		fmt.Fprintln(d.Out, authURL)
		fmt.Fprintln(d.Out, "Then re-run with the authorization code in GMAIL_AUTH_CODE.")
		return nil, ErrAuthPending
	}

	tok, err := d.exchange(ctx, d.Code)
	if err != nil {
		return nil, fmt.Errorf("exchange pending authorization code: %w", err)
	}

	// The code is single-use; clear it from the external channel so a later
	// run does not attempt a second exchange with a spent code.
	if d.Clear != nil {
		if cerr := d.Clear(); cerr != nil {
			d.Logger.Warn("failed to clear consumed authorization code", "error", cerr)
		}
	}
	return tok, nil
}

// Unavailable is wired when no consent flow can run in the current
// deployment (e.g. the client secret blob is missing). Obtain always fails,
// so credential resolution reports a clean auth failure instead of attempting
// a flow that cannot complete.
type Unavailable struct {
	Reason error
}

func (u Unavailable) Obtain(context.Context) (*oauth2.Token, error) {
	return nil, fmt.Errorf("authentication unavailable: %w", u.Reason)
}

func openBrowser(url string, logger *slog.Logger) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	if err := cmd.Start(); err != nil {
		logger.Warn("could not open browser", "error", err)
	}
}
