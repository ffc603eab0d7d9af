package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pastibot/companion/config"
	"github.com/pastibot/companion/internal/adapters/backend"
	"github.com/pastibot/companion/internal/adapters/nativebridge"
	"github.com/pastibot/companion/internal/adapters/realtime"
	"github.com/pastibot/companion/internal/observability/metrics"
	"github.com/pastibot/companion/internal/ports"
	"github.com/pastibot/companion/internal/service"
	"github.com/prometheus/client_golang/prometheus"
)

// AppDeps groups what the caller supplies to BuildApp.
type AppDeps struct {
	Config config.AppConfig
	Logger *slog.Logger
	UI     AppUI
}

// AppUI holds the presentation hooks of the host.
type AppUI struct {
	Navigator   ports.Navigator            // Optional
	OpenBrowser func(authURL string) error // Optional
}

// App is the wired client.
type App struct {
	Config    config.AppConfig
	Logger    *slog.Logger
	Client    *backend.Client
	Session   *service.Session
	Accounts  *service.AccountService
	Dispenser *service.DispenserService
	Identity  Identity
	Robot     *realtime.Listener // nil when no realtime URL is configured
	Registry  *prometheus.Registry

	closers []func() error
}

// BuildApp wires adapters and services. The session is not started; call
// App.Session.Start once the host is ready to render.
func BuildApp(ctx context.Context, deps AppDeps) (*App, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := backend.NewClient(backend.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	store, closeStore, err := BuildTokenStore(ctx, TokenStoreConfig{
		Store:  cfg.TokenStore,
		Redis:  cfg.Redis,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	tel := service.Telemetry{Logger: logger, Metrics: collector}

	identity := BuildIdentityProvider(ctx, IdentityConfig{
		Auth:        cfg.Auth,
		OpenBrowser: deps.UI.OpenBrowser,
		Logger:      logger,
	})

	exchange := service.NewCredentialExchange(service.CredentialExchangeOptions{
		Deps: service.ExchangeDeps{
			Backend:  client,
			Identity: identity.Provider,
			Native: nativebridge.New(nativebridge.Config{
				IDTokens:   cfg.Auth.Native.IDTokens,
				TokenFiles: cfg.Auth.Native.TokenFiles,
			}),
		},
		Config: service.ExchangeConfig{
			Platform:     service.Platform(cfg.Auth.Platform),
			PasswordFlow: service.PasswordFlow(cfg.Auth.PasswordFlow),
		},
		Telemetry: tel,
	})

	grace := cfg.Auth.ProfileGraceDelay
	if grace == 0 {
		grace = -1
	}
	session := service.NewSession(service.SessionOptions{
		Deps: service.SessionDeps{
			Backend:     client,
			Credentials: client,
			Store:       store,
			Exchange:    exchange,
			Identity:    identity.Provider,
			Redirects:   identity.Redirects,
			Navigator:   deps.UI.Navigator,
		},
		Config: service.SessionConfig{
			ProfileGraceDelay: grace,
			ReauthPolicy:      service.ReauthPolicy(cfg.Auth.ReauthPolicy),
		},
		Telemetry: tel,
	})
	client.OnUnauthorized(session.HandleUnauthorized)

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Client:   client,
		Session:  session,
		Identity: identity,
		Registry: registry,
		Accounts: service.NewAccountService(service.AccountServiceOptions{
			Backend: client,
			Session: session,
			Logger:  logger,
		}),
		Dispenser: service.NewDispenserService(service.DispenserServiceOptions{
			Backend: client,
			Session: session,
			Logger:  logger,
		}),
		closers: []func() error{closeStore},
	}

	if cfg.Realtime.URL != "" {
		listener, err := realtime.New(realtime.Options{
			Config: realtime.Config{URL: cfg.Realtime.URL, ReconnectDelay: cfg.Realtime.ReconnectDelay},
			Deps:   realtime.Deps{Status: client, Credentials: client},
			Telemetry: realtime.Telemetry{
				Logger:  logger,
				Metrics: collector,
			},
		})
		if err != nil {
			logger.Warn("realtime robot events disabled", "error", err)
		} else {
			app.Robot = listener
		}
	}

	return app, nil
}

// Close detaches observers and releases the token store.
func (a *App) Close() error {
	a.Session.Close()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
