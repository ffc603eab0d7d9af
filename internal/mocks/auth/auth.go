package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/pastibot/companion/internal/domain/auth"
	"github.com/pastibot/companion/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*MockIdentityProvider)(nil)
	_ ports.NativeBridge     = (*MockNativeBridge)(nil)
	_ ports.Navigator        = (*RecordingNavigator)(nil)
	_ ports.TokenStore       = (*FailingTokenStore)(nil)
)

// MockIdentityProvider simulates an IdP with deterministic proof tokens.
// Every successful sign-in becomes the Current identity until SignOut.
type MockIdentityProvider struct {
	InteractiveFunc func(ctx context.Context, provider string) (domainauth.FederatedIdentity, error)
	CredentialFunc  func(ctx context.Context, cred domainauth.NativeCredential) (domainauth.FederatedIdentity, error)
	PasswordFunc    func(ctx context.Context, email, password string) (domainauth.FederatedIdentity, error)
	CreateFunc      func(ctx context.Context, email, password string) (domainauth.FederatedIdentity, error)
	SignOutErr      error

	// SignOutHook runs before SignOut returns, outside the mock's lock.
	SignOutHook func(ctx context.Context)

	// Deterministic values for predictable testing
	ProofPrefix string
	DefaultUser domainauth.FederatedIdentity

	mu           sync.Mutex
	callCount    int
	current      *domainauth.FederatedIdentity
	signOutCalls int
	subs         map[int]func(domainauth.FederatedIdentity)
	nextSub      int
}

// NewMockIdentityProvider creates a MockIdentityProvider with sensible defaults.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		ProofPrefix: "proof",
		DefaultUser: domainauth.FederatedIdentity{
			Provider: "google",
			Subject:  "mock-user-1",
			Email:    "mock.user@example.com",
			Name:     "Mock User",
		},
		subs: make(map[int]func(domainauth.FederatedIdentity)),
	}
}

func (m *MockIdentityProvider) next(provider string) domainauth.FederatedIdentity {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	prefix := m.ProofPrefix
	if prefix == "" {
		prefix = "proof"
	}
	id := m.DefaultUser
	if provider != "" {
		id.Provider = provider
	}
	id.ProofToken = fmt.Sprintf("%s-%d", prefix, m.callCount)
	id.ExpiresAt = time.Now().Add(time.Hour)
	return id
}

func (m *MockIdentityProvider) remember(id domainauth.FederatedIdentity, err error) (domainauth.FederatedIdentity, error) {
	if err != nil {
		return id, err
	}
	m.mu.Lock()
	m.current = &id
	m.mu.Unlock()
	return id, nil
}

func (m *MockIdentityProvider) SignInInteractive(ctx context.Context, provider string) (domainauth.FederatedIdentity, error) {
	if m.InteractiveFunc != nil {
		return m.remember(m.InteractiveFunc(ctx, provider))
	}
	return m.remember(m.next(provider), nil)
}

func (m *MockIdentityProvider) SignInWithCredential(
	ctx context.Context,
	cred domainauth.NativeCredential,
) (domainauth.FederatedIdentity, error) {
	if m.CredentialFunc != nil {
		return m.remember(m.CredentialFunc(ctx, cred))
	}
	if cred.IDToken == "" {
		return domainauth.FederatedIdentity{}, errors.New("credential has no id token")
	}
	return m.remember(m.next(cred.Provider), nil)
}

func (m *MockIdentityProvider) SignInWithPassword(
	ctx context.Context,
	email, password string,
) (domainauth.FederatedIdentity, error) {
	if m.PasswordFunc != nil {
		return m.remember(m.PasswordFunc(ctx, email, password))
	}
	id := m.next("password")
	id.Email = email
	return m.remember(id, nil)
}

func (m *MockIdentityProvider) CreateAccount(
	ctx context.Context,
	email, password string,
) (domainauth.FederatedIdentity, error) {
	if m.CreateFunc != nil {
		return m.remember(m.CreateFunc(ctx, email, password))
	}
	id := m.next("password")
	id.Email = email
	return m.remember(id, nil)
}

func (m *MockIdentityProvider) Current(context.Context) (*domainauth.FederatedIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, nil
	}
	id := *m.current
	return &id, nil
}

// SetCurrent pretends the provider already holds a federated session.
func (m *MockIdentityProvider) SetCurrent(id *domainauth.FederatedIdentity) {
	m.mu.Lock()
	m.current = id
	m.mu.Unlock()
}

func (m *MockIdentityProvider) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.signOutCalls++
	m.current = nil
	hook, err := m.SignOutHook, m.SignOutErr
	m.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}
	return err
}

// SignOutCalls returns how many times SignOut ran.
func (m *MockIdentityProvider) SignOutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signOutCalls
}

func (m *MockIdentityProvider) Subscribe(fn func(domainauth.FederatedIdentity)) func() {
	m.mu.Lock()
	if m.subs == nil {
		m.subs = make(map[int]func(domainauth.FederatedIdentity))
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Emit delivers id to every subscriber, as a redirect completing later would.
func (m *MockIdentityProvider) Emit(id domainauth.FederatedIdentity) {
	m.mu.Lock()
	m.current = &id
	fns := make([]func(domainauth.FederatedIdentity), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

// MockNativeBridge returns a fixed credential or error.
type MockNativeBridge struct {
	IDToken string
	Err     error
	Calls   []string
}

func (m *MockNativeBridge) SignIn(_ context.Context, provider string) (domainauth.NativeCredential, error) {
	m.Calls = append(m.Calls, provider)
	if m.Err != nil {
		return domainauth.NativeCredential{}, m.Err
	}
	return domainauth.NativeCredential{Provider: provider, IDToken: m.IDToken}, nil
}

// RecordingNavigator records every forced navigation.
type RecordingNavigator struct {
	mu      sync.Mutex
	screens []domainauth.ScreenID
}

func (n *RecordingNavigator) Navigate(_ context.Context, screen domainauth.ScreenID) {
	n.mu.Lock()
	n.screens = append(n.screens, screen)
	n.mu.Unlock()
}

// Screens returns the navigations in order.
func (n *RecordingNavigator) Screens() []domainauth.ScreenID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domainauth.ScreenID(nil), n.screens...)
}

// FailingTokenStore wraps a store and injects errors per operation.
type FailingTokenStore struct {
	ports.TokenStore
	LoadErr   error
	SaveErr   error
	DeleteErr error
}

func (f *FailingTokenStore) Load(ctx context.Context) (string, error) {
	if f.LoadErr != nil {
		return "", f.LoadErr
	}
	return f.TokenStore.Load(ctx)
}

func (f *FailingTokenStore) Save(ctx context.Context, token string) error {
	if f.SaveErr != nil {
		return f.SaveErr
	}
	return f.TokenStore.Save(ctx, token)
}

func (f *FailingTokenStore) Delete(ctx context.Context) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	return f.TokenStore.Delete(ctx)
}
