package devauth

// Package devauth provides a config-driven IdentityProvider for mock auth mode.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	domainauth "github.com/pastibot/companion/internal/domain/auth"
	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/pastibot/companion/internal/ports"
)

// Config controls the dev identity provider.
// Subject and Email are required.
type Config struct {
	Provider string // default "dev"
	Subject  string
	Email    string
	Name     string

	// Password, when set, is the only password SignInWithPassword accepts.
	Password string

	// ProofToken is handed to the backend as the federated proof. A random
	// token is generated per sign-in when empty.
	ProofToken string

	SessionDuration time.Duration // default 8h when zero

	// RedirectURL is where BeginRedirect sends the user back to.
	RedirectURL string // default "http://127.0.0.1:8765/callback"
}

const defaultRedirectURL = "http://127.0.0.1:8765/callback"

// Provider implements ports.IdentityProvider without any network calls.
// Every interactive sign-in succeeds with the configured identity.
type Provider struct {
	cfg Config

	mu          sync.Mutex
	current     *domainauth.FederatedIdentity
	pending     map[string]string // state -> provider
	subscribers map[int]func(domainauth.FederatedIdentity)
	nextSubID   int
}

var (
	_ ports.IdentityProvider = (*Provider)(nil)
	_ ports.RedirectFlow     = (*Provider)(nil)
)

// NewProvider constructs a dev identity provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Subject == "" {
		return nil, errors.New("dev auth: Subject is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	if cfg.Provider == "" {
		cfg.Provider = "dev"
	}
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = 8 * time.Hour
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = defaultRedirectURL
	}
	if _, err := url.Parse(cfg.RedirectURL); err != nil {
		return nil, fmt.Errorf("dev auth: invalid RedirectURL: %w", err)
	}
	return &Provider{
		cfg:         cfg,
		pending:     make(map[string]string),
		subscribers: make(map[int]func(domainauth.FederatedIdentity)),
	}, nil
}

func (p *Provider) identity(provider, email string) (domainauth.FederatedIdentity, error) {
	proof := p.cfg.ProofToken
	if proof == "" {
		var err error
		if proof, err = randomString(32); err != nil {
			return domainauth.FederatedIdentity{}, fmt.Errorf("generate proof: %w", err)
		}
	}
	if provider == "" {
		provider = p.cfg.Provider
	}
	subject := p.cfg.Subject
	if email != p.cfg.Email {
		subject = "dev-" + strings.ToLower(email)
	}
	id := domainauth.FederatedIdentity{
		Provider:   provider,
		Subject:    subject,
		Email:      email,
		Name:       p.cfg.Name,
		ProofToken: proof,
		ExpiresAt:  time.Now().Add(p.cfg.SessionDuration),
	}
	p.mu.Lock()
	p.current = &id
	p.mu.Unlock()
	return id, nil
}

// SignInInteractive returns the configured identity immediately.
func (p *Provider) SignInInteractive(ctx context.Context, provider string) (domainauth.FederatedIdentity, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.FederatedIdentity{}, apperrors.FromTransport(err)
	}
	return p.identity(provider, p.cfg.Email)
}

// SignInWithCredential accepts any non-empty ID token and uses it as the proof.
func (p *Provider) SignInWithCredential(
	_ context.Context,
	cred domainauth.NativeCredential,
) (domainauth.FederatedIdentity, error) {
	if cred.IDToken == "" {
		return domainauth.FederatedIdentity{}, apperrors.Credential("native sign-in returned no ID token")
	}
	id, err := p.identity(cred.Provider, p.cfg.Email)
	if err != nil {
		return domainauth.FederatedIdentity{}, err
	}
	id.ProofToken = cred.IDToken
	p.mu.Lock()
	p.current = &id
	p.mu.Unlock()
	return id, nil
}

// SignInWithPassword checks the configured password, if any.
func (p *Provider) SignInWithPassword(_ context.Context, email, password string) (domainauth.FederatedIdentity, error) {
	if email == "" || password == "" {
		return domainauth.FederatedIdentity{}, apperrors.Credential("email and password are required")
	}
	if p.cfg.Password != "" && password != p.cfg.Password {
		return domainauth.FederatedIdentity{}, apperrors.Credential("invalid credentials")
	}
	return p.identity("password", email)
}

// CreateAccount signs in as a fresh identity for email.
func (p *Provider) CreateAccount(_ context.Context, email, password string) (domainauth.FederatedIdentity, error) {
	if email == "" || password == "" {
		return domainauth.FederatedIdentity{}, apperrors.Credential("email and password are required")
	}
	return p.identity("password", email)
}

// Current returns the signed-in identity, if any.
func (p *Provider) Current(context.Context) (*domainauth.FederatedIdentity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, nil
	}
	id := *p.current
	return &id, nil
}

// SignOut clears the current identity.
func (p *Provider) SignOut(context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	return nil
}

// BeginRedirect starts a redirect sign-in. There is no consent screen: the
// returned URL already is the redirect carrying an approved code.
func (p *Provider) BeginRedirect(_ context.Context, provider string) (string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", fmt.Errorf("generate state: %w", err)
	}
	code, err := randomString(16)
	if err != nil {
		return "", "", fmt.Errorf("generate code: %w", err)
	}
	u, _ := url.Parse(p.cfg.RedirectURL)
	q := u.Query()
	q.Set("code", code)
	q.Set("state", state)
	u.RawQuery = q.Encode()

	p.mu.Lock()
	p.pending[state] = provider
	p.mu.Unlock()
	return u.String(), state, nil
}

// HandleRedirect completes a flow started by BeginRedirect and notifies subscribers.
func (p *Provider) HandleRedirect(_ context.Context, redirectURL string) (domainauth.FederatedIdentity, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return domainauth.FederatedIdentity{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid redirect URL")
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return domainauth.FederatedIdentity{}, apperrors.Credentialf("sign-in failed: %s", e)
	}
	if q.Get("code") == "" {
		return domainauth.FederatedIdentity{}, apperrors.Credential("authorization code is required")
	}
	state := q.Get("state")
	p.mu.Lock()
	provider, ok := p.pending[state]
	delete(p.pending, state)
	p.mu.Unlock()
	if !ok {
		return domainauth.FederatedIdentity{}, apperrors.Credential("unknown or expired sign-in state")
	}

	id, err := p.identity(provider, p.cfg.Email)
	if err != nil {
		return domainauth.FederatedIdentity{}, err
	}
	p.publish(id)
	return id, nil
}

// Subscribe registers fn for identities delivered through HandleRedirect.
func (p *Provider) Subscribe(fn func(domainauth.FederatedIdentity)) func() {
	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

func (p *Provider) publish(id domainauth.FederatedIdentity) {
	p.mu.Lock()
	fns := make([]func(domainauth.FederatedIdentity), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	// Compute number of random bytes needed to produce at least n base64 URL chars
	bLen := (n*3 + 3) / 4
	b := make([]byte, bLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < n {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:n], nil
}
