package loopback

// Package loopback receives OAuth redirects on a local HTTP listener.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apperrors "github.com/pastibot/companion/internal/errors"
)

// Config controls the loopback receiver.
type Config struct {
	// RedirectURL is the registered redirect URI, e.g. http://127.0.0.1:8765/callback.
	RedirectURL string
	// Timeout bounds how long Await waits for the browser to come back. Default 5m.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Receiver implements oidc.CallbackReceiver with a short-lived chi server.
type Receiver struct {
	addr    string
	path    string
	timeout time.Duration
	logger  *slog.Logger

	// listen is swapped in tests to bind an ephemeral port.
	listen func(network, addr string) (net.Listener, error)
}

type result struct {
	code string
	err  error
}

// New validates cfg and returns a receiver.
func New(cfg Config) (*Receiver, error) {
	u, err := url.Parse(cfg.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("parse redirect URL: %w", err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("loopback redirect must use http, got %q", u.Scheme)
	}
	host := u.Hostname()
	if host != "127.0.0.1" && host != "localhost" && host != "::1" {
		return nil, fmt.Errorf("loopback redirect host must be local, got %q", host)
	}
	if u.Port() == "" {
		return nil, errors.New("loopback redirect URL needs an explicit port")
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Receiver{
		addr:    u.Host,
		path:    path,
		timeout: timeout,
		logger:  logger,
		listen:  net.Listen,
	}, nil
}

// Await listens on the redirect address, calls open, and waits for the callback carrying state.
func (r *Receiver) Await(ctx context.Context, state string, open func() error) (string, error) {
	ln, err := r.listen("tcp", r.addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", r.addr, err)
	}

	done := make(chan result, 1)
	var once sync.Once
	deliver := func(res result) {
		once.Do(func() { done <- res })
	}

	srv := &http.Server{
		Handler:           r.router(state, deliver),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			deliver(result{err: fmt.Errorf("loopback server: %w", serveErr)})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			r.logger.DebugContext(ctx, "loopback shutdown failed", "error", shutdownErr)
		}
	}()

	if err := open(); err != nil {
		return "", fmt.Errorf("open browser: %w", err)
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case res := <-done:
		return res.code, res.err
	case <-ctx.Done():
		return "", apperrors.FromTransport(ctx.Err())
	case <-timer.C:
		return "", apperrors.Wrap(context.DeadlineExceeded, apperrors.ErrCodeTimeout, "sign-in was not completed in time")
	}
}

func (r *Receiver) router(state string, deliver func(result)) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Get(r.path, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if e := q.Get("error"); e != "" {
			msg := q.Get("error_description")
			if msg == "" {
				msg = e
			}
			writePage(w, http.StatusOK, "Sign-in was cancelled. You can close this window.")
			deliver(result{err: apperrors.Credentialf("sign-in failed: %s", msg)})
			return
		}
		if q.Get("state") != state {
			// Stray or forged request; keep waiting for the real one.
			writePage(w, http.StatusBadRequest, "Unknown sign-in request.")
			return
		}
		code := q.Get("code")
		if code == "" {
			writePage(w, http.StatusBadRequest, "Missing authorization code.")
			deliver(result{err: apperrors.Credential("authorization code is required")})
			return
		}
		writePage(w, http.StatusOK, "Signed in. You can return to Pastibot.")
		deliver(result{code: code})
	})
	return mux
}

func writePage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
