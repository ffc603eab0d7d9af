package oidc

// Package oidc provides the OIDC/OAuth identity provider used for federated sign-in.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/pastibot/companion/internal/domain/auth"
	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/pastibot/companion/internal/ports"
	"golang.org/x/oauth2"
)

// CallbackReceiver receives the authorization redirect of an interactive sign-in.
// Await must be listening before it calls open, and returns the code delivered for state.
type CallbackReceiver interface {
	Await(ctx context.Context, state string, open func() error) (string, error)
}

// Provider implements ports.IdentityProvider using OIDC/OAuth2.
type Provider struct {
	config       *oauth2.Config
	httpClient   *http.Client
	logger       *slog.Logger
	receiver     CallbackReceiver
	openBrowser  func(authURL string) error
	audiences    []string
	providerHint string

	// go-oidc provider and verifier
	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	mu          sync.Mutex
	current     *domainauth.FederatedIdentity
	pending     map[string]pendingFlow
	subscribers map[int]func(domainauth.FederatedIdentity)
	nextSubID   int
}

var (
	_ ports.IdentityProvider = (*Provider)(nil)
	_ ports.RedirectFlow     = (*Provider)(nil)
)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string // Optional, public clients rely on PKCE
	RedirectURL  string
	Scope        string
	DiscoveryURL string

	// ProviderHint is sent as idp_hint when SignInInteractive is called without a provider.
	ProviderHint string

	// NativeClientIDs are extra audiences accepted for ID tokens minted for native apps.
	NativeClientIDs []string

	Receiver    CallbackReceiver           // Optional, required for SignInInteractive
	OpenBrowser func(authURL string) error // Optional, defaults to logging the URL
	HTTPClient  *http.Client               // Optional, defaults to a 30s client
	Logger      *slog.Logger
}

// DiscoveryDocument represents the OIDC discovery document.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

type pendingFlow struct {
	provider  string
	nonce     string
	verifier  string
	createdAt time.Time
}

const pendingFlowTTL = 10 * time.Minute

// NewProvider creates a new OIDC provider. It performs discovery once.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		httpClient:   httpClient,
		logger:       logger,
		receiver:     config.Receiver,
		openBrowser:  config.OpenBrowser,
		providerHint: config.ProviderHint,
		audiences:    append([]string{config.ClientID}, config.NativeClientIDs...),
		pending:      make(map[string]pendingFlow),
		subscribers:  make(map[int]func(domainauth.FederatedIdentity)),
	}
	if p.openBrowser == nil {
		p.openBrowser = func(authURL string) error {
			logger.Info("open this URL to continue sign-in", "url", authURL)
			return nil
		}
	}

	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(p.clientContext(ctx), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	p.oidcProvider = op
	// Audience is checked against audiences so native client IDs are accepted too.
	p.verifier = op.Verifier(&gooidc.Config{SkipClientIDCheck: true})

	p.config = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes:       strings.Fields(config.Scope),
		Endpoint:     op.Endpoint(),
	}
	if !p.hasOpenIDScope() {
		p.config.Scopes = append([]string{gooidc.ScopeOpenID}, p.config.Scopes...)
	}

	return p, nil
}

// BeginRedirect prepares a PKCE authorization request and returns the URL to open.
// The flow is completed later by HandleRedirect.
func (p *Provider) BeginRedirect(_ context.Context, provider string) (string, string, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return "", "", fmt.Errorf("generate nonce: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	if provider == "" {
		provider = p.providerHint
	}
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
		oauth2.S256ChallengeOption(verifier),
	}
	if provider != "" {
		opts = append(opts, oauth2.SetAuthURLParam("idp_hint", provider))
	}

	p.mu.Lock()
	p.prunePendingLocked(time.Now())
	p.pending[state] = pendingFlow{provider: provider, nonce: nonce, verifier: verifier, createdAt: time.Now()}
	p.mu.Unlock()

	return p.config.AuthCodeURL(state, opts...), state, nil
}

// HandleRedirect completes a flow started by BeginRedirect from the redirect URL the
// platform handed back. Subscribers are notified of the resulting identity.
func (p *Provider) HandleRedirect(ctx context.Context, redirectURL string) (domainauth.FederatedIdentity, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return domainauth.FederatedIdentity{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid redirect URL")
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return domainauth.FederatedIdentity{}, apperrors.Credentialf("sign-in failed: %s", firstNonEmpty(q.Get("error_description"), e))
	}
	id, err := p.complete(ctx, q.Get("state"), q.Get("code"))
	if err != nil {
		return domainauth.FederatedIdentity{}, err
	}
	p.publish(id)
	return id, nil
}

// SignInInteractive runs the browser redirect flow through the configured receiver.
func (p *Provider) SignInInteractive(ctx context.Context, provider string) (domainauth.FederatedIdentity, error) {
	if p.receiver == nil {
		return domainauth.FederatedIdentity{}, fmt.Errorf("interactive sign-in: %w", ports.ErrUnsupported)
	}
	authURL, state, err := p.BeginRedirect(ctx, provider)
	if err != nil {
		return domainauth.FederatedIdentity{}, err
	}
	code, err := p.receiver.Await(ctx, state, func() error { return p.openBrowser(authURL) })
	if err != nil {
		p.dropPending(state)
		return domainauth.FederatedIdentity{}, err
	}
	return p.complete(ctx, state, code)
}

func (p *Provider) complete(ctx context.Context, state, code string) (domainauth.FederatedIdentity, error) {
	if code == "" {
		return domainauth.FederatedIdentity{}, apperrors.Credential("authorization code is required")
	}
	if state == "" {
		return domainauth.FederatedIdentity{}, apperrors.Credential("state is required")
	}
	flow, ok := p.takePending(state)
	if !ok {
		return domainauth.FederatedIdentity{}, apperrors.Credential("unknown or expired sign-in state")
	}

	tok, err := p.config.Exchange(p.clientContext(ctx), code, oauth2.VerifierOption(flow.verifier))
	if err != nil {
		return domainauth.FederatedIdentity{}, classify(err, "exchange code for token")
	}
	return p.identityFromToken(ctx, tok, flow.provider, flow.nonce)
}

// SignInWithCredential verifies an ID token produced by a native bridge.
func (p *Provider) SignInWithCredential(
	ctx context.Context,
	cred domainauth.NativeCredential,
) (domainauth.FederatedIdentity, error) {
	if cred.IDToken == "" {
		return domainauth.FederatedIdentity{}, apperrors.Credential("native sign-in returned no ID token")
	}
	id, err := p.verifyIDToken(ctx, cred.IDToken, "")
	if err != nil {
		return domainauth.FederatedIdentity{}, err
	}
	id.Provider = firstNonEmpty(cred.Provider, p.providerHint)
	p.setCurrent(id)
	return id, nil
}

// SignInWithPassword uses the resource owner password grant.
func (p *Provider) SignInWithPassword(
	ctx context.Context,
	email, password string,
) (domainauth.FederatedIdentity, error) {
	tok, err := p.config.PasswordCredentialsToken(p.clientContext(ctx), email, password)
	if err != nil {
		return domainauth.FederatedIdentity{}, classify(err, "password sign-in")
	}
	return p.identityFromToken(ctx, tok, "password", "")
}

// CreateAccount is not offered by generic OIDC providers.
func (p *Provider) CreateAccount(context.Context, string, string) (domainauth.FederatedIdentity, error) {
	return domainauth.FederatedIdentity{}, fmt.Errorf("create account: %w", ports.ErrUnsupported)
}

// Current returns the signed-in identity while its proof is still valid.
func (p *Provider) Current(context.Context) (*domainauth.FederatedIdentity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, nil
	}
	if !p.current.ExpiresAt.IsZero() && time.Now().After(p.current.ExpiresAt) {
		p.current = nil
		return nil, nil
	}
	id := *p.current
	return &id, nil
}

// SignOut forgets the federated session.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	had := p.current != nil
	p.current = nil
	p.mu.Unlock()
	if had {
		p.logger.DebugContext(ctx, "federated session cleared")
	}
	return nil
}

// Subscribe registers fn for identities completed through HandleRedirect.
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

func (p *Provider) identityFromToken(
	ctx context.Context,
	tok *oauth2.Token,
	provider, nonce string,
) (domainauth.FederatedIdentity, error) {
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return domainauth.FederatedIdentity{}, apperrors.Wrap(err, apperrors.ErrCodeCredential, "token response")
	}
	id, err := p.verifyIDToken(ctx, rawID, nonce)
	if err != nil {
		return domainauth.FederatedIdentity{}, err
	}
	if id.Email == "" && tok.AccessToken != "" {
		if ui, uiErr := p.getUserInfo(ctx, tok.AccessToken); uiErr == nil {
			fillFromUserInfo(&id, *ui)
		} else {
			p.logger.DebugContext(ctx, "userinfo lookup failed", "error", uiErr)
		}
	}
	id.Provider = provider
	p.setCurrent(id)
	return id, nil
}

// idTokenClaims is the subset of standard OIDC claims used to build an identity.
type idTokenClaims struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Nonce      string `json:"nonce"`
}

func (p *Provider) verifyIDToken(ctx context.Context, raw, expectedNonce string) (domainauth.FederatedIdentity, error) {
	idTok, err := p.verifier.Verify(p.clientContext(ctx), raw)
	if err != nil {
		return domainauth.FederatedIdentity{}, apperrors.Wrap(err, apperrors.ErrCodeCredential, "verify id_token")
	}
	if !slices.ContainsFunc(idTok.Audience, func(aud string) bool { return slices.Contains(p.audiences, aud) }) {
		return domainauth.FederatedIdentity{}, apperrors.Credential("id_token audience not accepted")
	}
	var claims idTokenClaims
	if err := idTok.Claims(&claims); err != nil {
		return domainauth.FederatedIdentity{}, apperrors.Wrap(err, apperrors.ErrCodeCredential, "parse id_token claims")
	}
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return domainauth.FederatedIdentity{}, apperrors.Credential("invalid nonce")
	}
	return mapClaims(claims, raw, idTok.Expiry), nil
}

// mapClaims maps verified claims into an identity using precedence rules.
func mapClaims(c idTokenClaims, raw string, expiry time.Time) domainauth.FederatedIdentity {
	full := strings.TrimSpace(c.GivenName + " " + c.FamilyName)
	return domainauth.FederatedIdentity{
		Subject:    c.Sub,
		Email:      c.Email,
		Name:       firstNonEmpty(c.Name, full),
		ProofToken: raw,
		ExpiresAt:  expiry,
	}
}

// UserInfo represents the user information from the OIDC userinfo endpoint.
type UserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

func (p *Provider) getUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	ui, err := p.oidcProvider.UserInfo(p.clientContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	var userInfo UserInfo
	if claimsErr := ui.Claims(&userInfo); claimsErr != nil {
		return nil, fmt.Errorf("decode user info: %w", claimsErr)
	}
	return &userInfo, nil
}

// fillFromUserInfo fills missing fields without overwriting verified claims.
func fillFromUserInfo(id *domainauth.FederatedIdentity, ui UserInfo) {
	if id.Subject == "" {
		id.Subject = ui.Subject
	}
	if id.Email == "" {
		id.Email = ui.Email
	}
	if id.Name == "" {
		id.Name = ui.Name
	}
}

func (p *Provider) setCurrent(id domainauth.FederatedIdentity) {
	p.mu.Lock()
	p.current = &id
	p.mu.Unlock()
}

func (p *Provider) takePending(state string) (pendingFlow, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	flow, ok := p.pending[state]
	delete(p.pending, state)
	if ok && time.Since(flow.createdAt) > pendingFlowTTL {
		return pendingFlow{}, false
	}
	return flow, ok
}

func (p *Provider) dropPending(state string) {
	p.mu.Lock()
	delete(p.pending, state)
	p.mu.Unlock()
}

func (p *Provider) prunePendingLocked(now time.Time) {
	for state, flow := range p.pending {
		if now.Sub(flow.createdAt) > pendingFlowTTL {
			delete(p.pending, state)
		}
	}
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// classify maps OAuth2 errors: a token endpoint rejection is a credential error,
// anything else is a transport failure.
func classify(err error, op string) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		msg := firstNonEmpty(re.ErrorDescription, re.ErrorCode, "rejected by identity provider")
		return apperrors.Wrapf(err, apperrors.ErrCodeCredential, "%s: %s", op, msg)
	}
	appErr := apperrors.FromTransport(err)
	appErr.Message = op + ": " + appErr.Message
	return appErr
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}

// hasOpenIDScope reports whether the configured scopes include "openid".
func (p *Provider) hasOpenIDScope() bool {
	return slices.Contains(p.config.Scopes, gooidc.ScopeOpenID)
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
