package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/pastibot/companion/internal/domain/auth"
	"github.com/pastibot/companion/internal/domain/robot"
)

// ErrUnsupported is returned by identity providers for operations they cannot perform.
var ErrUnsupported = errors.New("operation not supported by identity provider")

// AuthBackend is the slice of the Pastibot API the session lifecycle depends on.
type AuthBackend interface {
	Login(ctx context.Context, email, password string) (*domainauth.AuthResponse, error)
	Register(ctx context.Context, in domainauth.RegisterInput) (*domainauth.AuthResponse, error)
	FederatedLogin(ctx context.Context, proofToken string) (*domainauth.AuthResponse, error)
	FederatedRegister(ctx context.Context, in FederatedRegisterInput) (*domainauth.AuthResponse, error)

	// Profile fetches the user behind the active bearer token.
	Profile(ctx context.Context) (*domainauth.UserRecord, error)

	// SetRole assigns a role and may return a re-issued token.
	SetRole(ctx context.Context, role domainauth.Role, caregiverCode string) (*SetRoleResult, error)
}

// AccountBackend covers account maintenance calls that do not change the session token.
type AccountBackend interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, password string) error
	UpdatePatientProfile(ctx context.Context, in domainauth.ProfileUpdate) error
	// LinkCaregiver attaches the calling patient to the caregiver owning code.
	LinkCaregiver(ctx context.Context, code string) error
}

// DispenserBackend sends dispense orders and reads the intake history.
type DispenserBackend interface {
	// Dispense orders the robot to release one dose of medicineID (caregiver).
	Dispense(ctx context.Context, medicineID int64) (robot.DispenseResult, error)
	// DispenseMine releases a scheduled dose for the calling patient.
	DispenseMine(ctx context.Context, medicineID int64) (robot.DispenseResult, error)
	// History lists the calling patient's dispensations of the last days.
	History(ctx context.Context, days int) ([]robot.Dispensation, error)
}

// FederatedRegisterInput groups parameters for account creation through a federated proof.
type FederatedRegisterInput struct {
	ProofToken    string
	Name          string
	Role          domainauth.Role
	Gender        string
	CaregiverCode string
}

// SetRoleResult is the response of the set-role call. AccessToken may be empty.
type SetRoleResult struct {
	AccessToken string
}

// CredentialHolder owns the default Authorization header used by every backend call.
type CredentialHolder interface {
	SetBearerToken(token string)
	BearerToken() string
}

// TokenStore persists the bearer token under a single fixed key.
// Load returns an empty string and no error when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// IdentityProvider is the federated identity service (social login / OIDC).
type IdentityProvider interface {
	// SignInInteractive runs the browser popup/redirect flow.
	SignInInteractive(ctx context.Context, provider string) (domainauth.FederatedIdentity, error)

	// SignInWithCredential exchanges a credential produced by a native bridge for a federated session.
	SignInWithCredential(ctx context.Context, cred domainauth.NativeCredential) (domainauth.FederatedIdentity, error)

	// SignInWithPassword signs in with email/password at the identity provider.
	SignInWithPassword(ctx context.Context, email, password string) (domainauth.FederatedIdentity, error)

	// CreateAccount creates an identity-provider account and signs it in.
	CreateAccount(ctx context.Context, email, password string) (domainauth.FederatedIdentity, error)

	// Current returns the active federated session, or nil when none is held.
	Current(ctx context.Context) (*domainauth.FederatedIdentity, error)

	// SignOut terminates the federated session. It is a no-op when none is active.
	SignOut(ctx context.Context) error

	// Subscribe registers fn for sign-in events completed outside a direct call
	// (e.g. a redirect that returns later). The returned func unsubscribes.
	Subscribe(fn func(domainauth.FederatedIdentity)) (unsubscribe func())
}

// RedirectFlow splits a federated sign-in into two steps for platforms where
// the provider returns through a deep link instead of a local receiver.
// HandleRedirect delivers the identity to IdentityProvider subscribers.
type RedirectFlow interface {
	BeginRedirect(ctx context.Context, provider string) (authURL, state string, err error)
	HandleRedirect(ctx context.Context, redirectURL string) (domainauth.FederatedIdentity, error)
}

// NativeBridge is the platform sign-in bridge available on native builds.
type NativeBridge interface {
	SignIn(ctx context.Context, provider string) (domainauth.NativeCredential, error)
}

// Navigator forces the UI to a screen. The session uses it for the global
// "session died" redirect.
type Navigator interface {
	Navigate(ctx context.Context, screen domainauth.ScreenID)
}
