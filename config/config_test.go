package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.API.BaseURL != "http://localhost:3000/api" {
		t.Fatalf("unexpected API base URL %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Fatalf("unexpected API timeout %v", cfg.API.Timeout)
	}
	if cfg.Auth.Mode != AuthModeOAuth || cfg.Auth.Platform != "web" || cfg.Auth.PasswordFlow != "backend" {
		t.Fatalf("unexpected auth defaults: %#v", cfg.Auth)
	}
	if cfg.Auth.ReauthPolicy != "lazy" || cfg.Auth.ProfileGraceDelay != 500*time.Millisecond {
		t.Fatalf("unexpected session defaults: %q %v", cfg.Auth.ReauthPolicy, cfg.Auth.ProfileGraceDelay)
	}
	if cfg.TokenStore.Backend != TokenStoreSQLite || cfg.TokenStore.Key != "authToken" {
		t.Fatalf("unexpected token store defaults: %#v", cfg.TokenStore)
	}
	if cfg.Realtime.URL != "ws://localhost:3000/robot/events" {
		t.Fatalf("unexpected realtime URL %q", cfg.Realtime.URL)
	}
	if cfg.Observability.Metrics.IsEnabled() {
		t.Fatalf("metrics should be disabled by default")
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "OAUTH")
	t.Setenv("AUTH_PLATFORM", "native")
	t.Setenv("AUTH_PASSWORD_FLOW", "federated")
	t.Setenv("AUTH_REAUTH_POLICY", "eager")
	t.Setenv("AUTH_PROFILE_GRACE_DELAY", "1s")
	t.Setenv("OAUTH_CLIENT_ID", "web-client")
	t.Setenv("OAUTH_REDIRECT_URL", "http://127.0.0.1:9000/callback")
	t.Setenv("OAUTH_DISCOVERY_URL", " https://login.example.com ")
	t.Setenv("OAUTH_SCOPE", "openid email")
	t.Setenv("OAUTH_PROVIDER_HINT", "apple")
	t.Setenv("OAUTH_NATIVE_CLIENT_IDS", "android-client,ios-client")
	t.Setenv("OAUTH_CALLBACK_TIMEOUT", "2m")
	t.Setenv("DEV_AUTH_SUBJECT", "dev-1")
	t.Setenv("DEV_AUTH_EMAIL", "dev1@example.com")
	t.Setenv("DEV_AUTH_NAME", "Dev One")
	t.Setenv("NATIVE_ID_TOKENS", "google=tok-g;apple=tok-a")
	t.Setenv("NATIVE_TOKEN_FILES", "google=/tmp/google.jwt")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	expected := AuthConfig{
		Mode:              AuthModeOAuth,
		Platform:          "native",
		PasswordFlow:      "federated",
		ReauthPolicy:      "eager",
		ProfileGraceDelay: time.Second,
		OAuth: OAuthConfig{
			ClientID:        "web-client",
			RedirectURL:     "http://127.0.0.1:9000/callback",
			Scope:           "openid email",
			DiscoveryURL:    "https://login.example.com",
			ProviderHint:    "apple",
			NativeClientIDs: []string{"android-client", "ios-client"},
			CallbackTimeout: 2 * time.Minute,
		},
		DevAuth: DevAuthConfig{
			Subject: "dev-1",
			Email:   "dev1@example.com",
			Name:    "Dev One",
		},
		Native: NativeConfig{
			IDTokens:   map[string]string{"google": "tok-g", "apple": "tok-a"},
			TokenFiles: map[string]string{"google": "/tmp/google.jwt"},
		},
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
	if !cfg.Auth.OAuthReady() {
		t.Fatalf("expected OAuth to be ready")
	}
}

func TestAppConfig_InvalidEnums(t *testing.T) {
	t.Setenv("AUTH_MODE", "saml")
	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatalf("expected error for invalid AUTH_MODE")
	}

	t.Setenv("AUTH_MODE", "mock")
	t.Setenv("TOKEN_STORE_BACKEND", "etcd")
	if err := env.Parse(&cfg); err == nil {
		t.Fatalf("expected error for invalid TOKEN_STORE_BACKEND")
	}
}

func TestAuthConfig_SanitizeFallsBack(t *testing.T) {
	cfg := AuthConfig{Platform: "Desktop", PasswordFlow: " FEDERATED ", ReauthPolicy: "", ProfileGraceDelay: -time.Second}
	cfg.Sanitize()

	if cfg.Platform != "web" {
		t.Fatalf("expected unknown platform to fall back to web, got %q", cfg.Platform)
	}
	if cfg.PasswordFlow != "federated" {
		t.Fatalf("expected password flow to be normalised, got %q", cfg.PasswordFlow)
	}
	if cfg.ReauthPolicy != "lazy" {
		t.Fatalf("expected lazy reauth policy, got %q", cfg.ReauthPolicy)
	}
	if cfg.ProfileGraceDelay != 0 {
		t.Fatalf("expected negative grace delay to clamp to zero, got %v", cfg.ProfileGraceDelay)
	}
}

func TestRealtimeConfig_Sanitize(t *testing.T) {
	tests := []struct {
		name string
		cfg  RealtimeConfig
		base string
		want string
	}{
		{name: "derived from https", base: "https://api.pastibot.com/api", want: "wss://api.pastibot.com/robot/events"},
		{name: "derived from http", base: "http://10.0.2.2:3000/api", want: "ws://10.0.2.2:3000/robot/events"},
		{name: "explicit wins", cfg: RealtimeConfig{URL: " ws://robot.local/ws "}, base: "https://api.pastibot.com", want: "ws://robot.local/ws"},
		{name: "no base", base: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Sanitize(tt.base)
			if cfg.URL != tt.want {
				t.Fatalf("URL = %q, want %q", cfg.URL, tt.want)
			}
			if cfg.ReconnectDelay != 3*time.Second {
				t.Fatalf("expected default reconnect delay, got %v", cfg.ReconnectDelay)
			}
		})
	}
}

func TestAPIConfig_Sanitize(t *testing.T) {
	cfg := APIConfig{BaseURL: " https://api.pastibot.com/api/ ", Timeout: 0}
	cfg.Sanitize()
	if cfg.BaseURL != "https://api.pastibot.com/api" {
		t.Fatalf("unexpected base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout != 15*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Timeout)
	}
}

func TestTokenStoreConfig_Sanitize(t *testing.T) {
	cfg := TokenStoreConfig{SQLitePath: "  ", Key: " "}
	cfg.Sanitize()
	if cfg.Backend != TokenStoreSQLite || cfg.SQLitePath != ".pastibot/session.db" || cfg.Key != "authToken" {
		t.Fatalf("unexpected sanitised token store config: %#v", cfg)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled: true,
		Addr:    " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled: true,
		Addr:    " 127.0.0.1:9100 ",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.Addr != "127.0.0.1:9100" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.Addr)
	}
}

func TestLoggingConfig_SlogLevel(t *testing.T) {
	cfg := LoggingConfig{Level: " DEBUG "}
	cfg.Sanitize()
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.SlogLevel())
	}

	cfg = LoggingConfig{Level: "verbose"}
	cfg.Sanitize()
	if cfg.Level != "info" || cfg.SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected fallback to info, got %q", cfg.Level)
	}
}
