package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/pastibot/companion/internal/domain/auth"
	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/pastibot/companion/internal/observability/metrics"
	"github.com/pastibot/companion/internal/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Platform selects the federated sign-in mechanism.
type Platform string

const (
	PlatformWeb    Platform = "web"
	PlatformNative Platform = "native"
)

// PasswordFlow selects how email/password credentials are checked.
type PasswordFlow string

const (
	// PasswordFlowBackend posts the credentials straight to /auth/login.
	PasswordFlowBackend PasswordFlow = "backend"
	// PasswordFlowFederated signs in at the identity provider and exchanges its proof.
	PasswordFlowFederated PasswordFlow = "federated"
)

// ExchangeDeps groups the collaborators of CredentialExchange.
type ExchangeDeps struct {
	Backend  ports.AuthBackend      // Required
	Identity ports.IdentityProvider // Required for federated flows
	Native   ports.NativeBridge     // Required for PlatformNative
}

// ExchangeConfig controls which mechanisms are used.
type ExchangeConfig struct {
	Platform     Platform     // default PlatformWeb
	PasswordFlow PasswordFlow // default PasswordFlowBackend
}

// CredentialExchangeOptions groups dependencies for CredentialExchange.
type CredentialExchangeOptions struct {
	Deps      ExchangeDeps
	Config    ExchangeConfig
	Telemetry Telemetry
}

// Outcome is the normalised result of every sign-in mechanism.
type Outcome struct {
	BackendToken string
	User         *domainauth.UserRecord
	Response     *domainauth.AuthResponse
	Attempt      *domainauth.Attempt
}

// CredentialExchange turns password, federated web and federated native sign-ins
// into a backend token. It never touches session state.
type CredentialExchange struct {
	backend  ports.AuthBackend
	identity ports.IdentityProvider
	native   ports.NativeBridge
	cfg      ExchangeConfig

	logger  *slog.Logger
	metrics metrics.Recorder
	tracer  trace.Tracer
}

// NewCredentialExchange constructs a CredentialExchange.
func NewCredentialExchange(opts CredentialExchangeOptions) *CredentialExchange {
	if opts.Deps.Backend == nil {
		panic("AuthBackend is required")
	}
	cfg := opts.Config
	if cfg.Platform == "" {
		cfg.Platform = PlatformWeb
	}
	if cfg.PasswordFlow == "" {
		cfg.PasswordFlow = PasswordFlowBackend
	}
	tel := opts.Telemetry.withDefaults()
	return &CredentialExchange{
		backend:  opts.Deps.Backend,
		identity: opts.Deps.Identity,
		native:   opts.Deps.Native,
		cfg:      cfg,
		logger:   tel.Logger,
		metrics:  tel.Metrics,
		tracer:   tel.Tracer,
	}
}

var errNoIdentityProvider = fmt.Errorf("identity provider not configured: %w", ports.ErrUnsupported)

type exchangeStep func(ctx context.Context, a *domainauth.Attempt) (*domainauth.AuthResponse, error)

// Password signs in with email and password using the configured flow.
func (x *CredentialExchange) Password(ctx context.Context, email, password string) (*Outcome, error) {
	email = strings.TrimSpace(email)
	if x.cfg.PasswordFlow == PasswordFlowFederated {
		return x.run(ctx, domainauth.MethodPassword, func(ctx context.Context, a *domainauth.Attempt) (*domainauth.AuthResponse, error) {
			if x.identity == nil {
				return nil, errNoIdentityProvider
			}
			id, err := x.identity.SignInWithPassword(ctx, email, password)
			if err != nil {
				return nil, err
			}
			return x.syncProof(ctx, a, id.ProofToken)
		})
	}
	return x.run(ctx, domainauth.MethodPassword, func(ctx context.Context, a *domainauth.Attempt) (*domainauth.AuthResponse, error) {
		if err := a.Syncing(); err != nil {
			return nil, err
		}
		return x.backend.Login(ctx, email, password)
	})
}

// Register creates an account and signs it in. Input is assumed validated.
func (x *CredentialExchange) Register(ctx context.Context, in domainauth.RegisterInput) (*Outcome, error) {
	if x.cfg.PasswordFlow == PasswordFlowFederated {
		return x.run(ctx, domainauth.MethodRegister, func(ctx context.Context, a *domainauth.Attempt) (*domainauth.AuthResponse, error) {
			if x.identity == nil {
				return nil, errNoIdentityProvider
			}
			id, err := x.identity.CreateAccount(ctx, in.Email, in.Password)
			if err != nil {
				return nil, err
			}
			if err := a.IdentityObtained(); err != nil {
				return nil, err
			}
			if err := a.Syncing(); err != nil {
				return nil, err
			}
			return x.backend.FederatedRegister(ctx, ports.FederatedRegisterInput{
				ProofToken:    id.ProofToken,
				Name:          in.Name,
				Role:          in.Role,
				Gender:        in.Gender,
				CaregiverCode: in.CaregiverCode,
			})
		})
	}
	return x.run(ctx, domainauth.MethodRegister, func(ctx context.Context, a *domainauth.Attempt) (*domainauth.AuthResponse, error) {
		if err := a.Syncing(); err != nil {
			return nil, err
		}
		return x.backend.Register(ctx, in)
	})
}

// Federated signs in through a social provider. Native platforms go through the
// platform bridge and the identity SDK; web uses the interactive redirect flow.
func (x *CredentialExchange) Federated(ctx context.Context, provider string) (*Outcome, error) {
	if x.cfg.Platform == PlatformNative {
		return x.run(ctx, domainauth.MethodFederatedNative, func(ctx context.Context, a *domainauth.Attempt) (*domainauth.AuthResponse, error) {
			if x.native == nil {
				return nil, fmt.Errorf("native bridge not configured: %w", ports.ErrUnsupported)
			}
			if x.identity == nil {
				return nil, errNoIdentityProvider
			}
			cred, err := x.native.SignIn(ctx, provider)
			if err != nil {
				return nil, err
			}
			if cred.Provider == "" {
				cred.Provider = provider
			}
			id, err := x.identity.SignInWithCredential(ctx, cred)
			if err != nil {
				return nil, err
			}
			return x.syncProof(ctx, a, id.ProofToken)
		})
	}
	return x.run(ctx, domainauth.MethodFederatedWeb, func(ctx context.Context, a *domainauth.Attempt) (*domainauth.AuthResponse, error) {
		if x.identity == nil {
			return nil, errNoIdentityProvider
		}
		id, err := x.identity.SignInInteractive(ctx, provider)
		if err != nil {
			return nil, err
		}
		return x.syncProof(ctx, a, id.ProofToken)
	})
}

// SyncIdentity exchanges an identity that was obtained elsewhere (the provider's
// observer or a restored federated session) for a backend token.
func (x *CredentialExchange) SyncIdentity(ctx context.Context, id domainauth.FederatedIdentity) (*Outcome, error) {
	return x.run(ctx, domainauth.MethodObserver, func(ctx context.Context, a *domainauth.Attempt) (*domainauth.AuthResponse, error) {
		return x.syncProof(ctx, a, id.ProofToken)
	})
}

func (x *CredentialExchange) syncProof(
	ctx context.Context,
	a *domainauth.Attempt,
	proof string,
) (*domainauth.AuthResponse, error) {
	if proof == "" {
		return nil, apperrors.Credential("identity provider returned no proof token")
	}
	if err := a.IdentityObtained(); err != nil {
		return nil, err
	}
	if err := a.Syncing(); err != nil {
		return nil, err
	}
	return x.backend.FederatedLogin(ctx, proof)
}

// run drives one attempt. Errors are returned exactly as the failing step produced them.
func (x *CredentialExchange) run(ctx context.Context, method domainauth.SignInMethod, step exchangeStep) (*Outcome, error) {
	ctx, span := x.tracer.Start(ctx, "auth.exchange",
		trace.WithAttributes(attribute.String("auth.method", string(method))))
	defer span.End()

	started := time.Now()
	attempt := domainauth.NewAttempt(method)
	if err := attempt.Start(); err != nil {
		return nil, err
	}

	resp, err := step(ctx, attempt)
	if err == nil && (resp == nil || resp.AccessToken == "") {
		err = apperrors.Credential("backend returned no access token")
	}
	elapsed := time.Since(started)

	if err != nil {
		if failErr := attempt.Fail(err); failErr != nil && !errors.Is(failErr, domainauth.ErrAttemptFinished) {
			x.logger.ErrorContext(ctx, "sign-in attempt state", "error", failErr)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.Message(err))
		x.metrics.RecordSignIn(string(method), metrics.ResultError, err, elapsed)
		x.logger.InfoContext(ctx, "sign-in failed",
			"method", method,
			"error_code", apperrors.GetCode(err),
			"error", err,
		)
		return nil, err
	}

	if doneErr := attempt.Done(); doneErr != nil {
		return nil, doneErr
	}
	span.SetAttributes(attribute.Bool("auth.user_present", resp.User != nil))
	span.SetStatus(codes.Ok, "")
	x.metrics.RecordSignIn(string(method), metrics.ResultSuccess, nil, elapsed)

	return &Outcome{
		BackendToken: resp.AccessToken,
		User:         resp.User,
		Response:     resp,
		Attempt:      attempt,
	}, nil
}
