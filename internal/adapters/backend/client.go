package backend

// Package backend provides the HTTP client for the Pastibot API.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/pastibot/companion/internal/ports"
)

const maxBodyBytes = 1 << 20

// UnauthorizedHook is invoked once per authenticated request that the backend rejects
// with 401. token is the bearer credential the request carried.
type UnauthorizedHook func(ctx context.Context, token string)

// Config holds configuration for the backend client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // Optional, defaults to a client with Timeout
	Logger     *slog.Logger
}

// Client is a JSON client for the Pastibot API.
// It owns the process-wide default Authorization header; only the session
// writes it through SetBearerToken.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger

	mu             sync.RWMutex
	token          string
	onUnauthorized UnauthorizedHook
}

var (
	_ ports.CredentialHolder = (*Client)(nil)
	_ ports.AuthBackend      = (*Client)(nil)
	_ ports.AccountBackend   = (*Client)(nil)
	_ ports.DispenserBackend = (*Client)(nil)
)

// NewClient creates a new backend client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", u.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{baseURL: u, http: httpClient, logger: logger}, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// SetBearerToken replaces the default Authorization header. An empty token clears it.
func (c *Client) SetBearerToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// BearerToken returns the active bearer token, empty when anonymous.
func (c *Client) BearerToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized installs the global 401 interceptor.
func (c *Client) OnUnauthorized(hook UnauthorizedHook) {
	c.mu.Lock()
	c.onUnauthorized = hook
	c.mu.Unlock()
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Body   any
	Out    any

	// Anonymous requests never carry the bearer token and are exempt from the
	// 401 interceptor. Credential exchanges use this so a wrong password can't
	// end an unrelated session.
	Anonymous bool
}

// Do executes r and decodes a 2xx JSON body into r.Out when set.
// Non-2xx responses are returned as *apperrors.AppError.
func (c *Client) Do(ctx context.Context, r Request) error {
	req, token, err := c.newRequest(ctx, r)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.FromTransport(err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.DebugContext(ctx, "close response body failed", "error", cerr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apperrors.FromTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		appErr := apperrors.FromResponse(resp.StatusCode, body)
		c.logger.DebugContext(ctx, "backend request failed",
			"method", r.Method,
			"path", r.Path,
			"status", resp.StatusCode,
			"request_id", req.Header.Get("X-Request-ID"),
		)
		if appErr.Code == apperrors.ErrCodeUnauthorized && !r.Anonymous && token != "" {
			c.notifyUnauthorized(ctx, token)
		}
		return appErr
	}

	if r.Out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, r.Out); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeInternal, "decode %s %s response", r.Method, r.Path)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, string, error) {
	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, "", apperrors.Wrapf(err, apperrors.ErrCodeInternal, "encode %s %s body", r.Method, r.Path)
		}
		body = bytes.NewReader(data)
	}

	rel, err := url.Parse(r.Path)
	if err != nil {
		return nil, "", apperrors.Wrapf(err, apperrors.ErrCodeInternal, "parse path %q", r.Path)
	}
	target := c.baseURL.JoinPath(rel.Path)
	target.RawQuery = rel.RawQuery

	req, err := http.NewRequestWithContext(ctx, r.Method, target.String(), body)
	if err != nil {
		return nil, "", apperrors.Wrapf(err, apperrors.ErrCodeInternal, "build %s %s", r.Method, r.Path)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var token string
	if !r.Anonymous {
		token = c.BearerToken()
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, token, nil
}

func (c *Client) notifyUnauthorized(ctx context.Context, token string) {
	c.mu.RLock()
	hook := c.onUnauthorized
	c.mu.RUnlock()
	if hook == nil {
		return
	}
	c.logger.WarnContext(ctx, "session rejected by backend, signing out")
	hook(ctx, token)
}
