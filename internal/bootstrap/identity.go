package bootstrap

import (
	"context"
	"log/slog"

	"github.com/pastibot/companion/config"
	"github.com/pastibot/companion/internal/adapters/devauth"
	"github.com/pastibot/companion/internal/adapters/loopback"
	"github.com/pastibot/companion/internal/adapters/oidc"
	"github.com/pastibot/companion/internal/ports"
)

// IdentityConfig contains configuration for the identity provider.
type IdentityConfig struct {
	Auth        config.AuthConfig
	OpenBrowser func(authURL string) error // Optional
	Logger      *slog.Logger
}

// Identity is the built identity provider. OIDC is set in oauth mode and Dev in
// mock mode; Provider is nil when neither could be configured. Redirects is the
// same provider seen through its two-step redirect flow.
type Identity struct {
	Provider  ports.IdentityProvider
	Redirects ports.RedirectFlow
	OIDC      *oidc.Provider
	Dev       *devauth.Provider
}

// BuildIdentityProvider creates the identity provider for the configured auth mode.
// A misconfigured provider disables federated sign-in instead of failing startup;
// password sign-in against the backend keeps working.
func BuildIdentityProvider(ctx context.Context, cfg IdentityConfig) Identity {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		return buildDevIdentity(cfg.Auth, logger)
	case config.AuthModeOAuth:
		return buildOIDCIdentity(ctx, cfg, logger)
	default:
		return Identity{}
	}
}

func buildDevIdentity(auth config.AuthConfig, logger *slog.Logger) Identity {
	prov, err := devauth.NewProvider(devauth.Config{
		Subject:     auth.DevAuth.Subject,
		Email:       auth.DevAuth.Email,
		Name:        auth.DevAuth.Name,
		Password:    auth.DevAuth.Password,
		ProofToken:  auth.DevAuth.ProofToken,
		RedirectURL: auth.OAuth.RedirectURL,
	})
	if err != nil {
		logger.Warn("failed to create dev identity provider, federated sign-in disabled", "error", err)
		return Identity{}
	}
	return Identity{Provider: prov, Redirects: prov, Dev: prov}
}

func buildOIDCIdentity(ctx context.Context, cfg IdentityConfig, logger *slog.Logger) Identity {
	oauth := cfg.Auth.OAuth
	if !cfg.Auth.OAuthReady() {
		logger.Warn("AuthModeOAuth selected but required config missing; federated sign-in disabled",
			"discovery_url_empty", oauth.DiscoveryURL == "",
			"client_id_empty", oauth.ClientID == "",
		)
		return Identity{}
	}

	var receiver oidc.CallbackReceiver
	if r, err := loopback.New(loopback.Config{
		RedirectURL: oauth.RedirectURL,
		Timeout:     oauth.CallbackTimeout,
		Logger:      logger,
	}); err != nil {
		logger.Warn("redirect URL is not a loopback address; interactive sign-in disabled", "error", err)
	} else {
		receiver = r
	}

	prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
		ClientID:        oauth.ClientID,
		ClientSecret:    oauth.ClientSecret,
		RedirectURL:     oauth.RedirectURL,
		Scope:           oauth.Scope,
		DiscoveryURL:    oauth.DiscoveryURL,
		ProviderHint:    oauth.ProviderHint,
		NativeClientIDs: oauth.NativeClientIDs,
		Receiver:        receiver,
		OpenBrowser:     cfg.OpenBrowser,
		Logger:          logger,
	})
	if err != nil {
		logger.Warn("failed to create OIDC provider, federated sign-in disabled", "error", err)
		return Identity{}
	}
	return Identity{Provider: prov, Redirects: prov, OIDC: prov}
}
