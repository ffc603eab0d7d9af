package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the identity provider used for federated sign-in.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"pastibot-companion"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://127.0.0.1:8765/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`

	// ProviderHint selects the upstream social provider when none is given.
	ProviderHint string `env:"PROVIDER_HINT" envDefault:"google"`

	// NativeClientIDs are accepted audiences for ID tokens minted for the mobile apps.
	NativeClientIDs []string `env:"NATIVE_CLIENT_IDS" envSeparator:","`

	// CallbackTimeout bounds how long the loopback receiver waits for the browser.
	CallbackTimeout time.Duration `env:"CALLBACK_TIMEOUT" envDefault:"5m"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Subject    string `env:"SUBJECT"     envDefault:"dev-user"`
	Email      string `env:"EMAIL"       envDefault:"dev@example.com"`
	Name       string `env:"NAME"        envDefault:"Dev User"`
	Password   string `env:"PASSWORD"`
	ProofToken string `env:"PROOF_TOKEN"`
}

// NativeConfig feeds the native sign-in bridge.
type NativeConfig struct {
	// IDTokens maps provider to a literal ID token, e.g. "google:eyJ...".
	IDTokens map[string]string `env:"ID_TOKENS"   envSeparator:";" envKeyValSeparator:"="`
	// TokenFiles maps provider to a file holding an ID token.
	TokenFiles map[string]string `env:"TOKEN_FILES" envSeparator:";" envKeyValSeparator:"="`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// Platform is web (interactive redirect) or native (platform bridge).
	Platform string `env:"AUTH_PLATFORM" envDefault:"web"`

	// PasswordFlow is backend (direct /auth/login) or federated.
	PasswordFlow string `env:"AUTH_PASSWORD_FLOW" envDefault:"backend"`

	// ReauthPolicy is lazy or eager; see service.ReauthPolicy.
	ReauthPolicy string `env:"AUTH_REAUTH_POLICY" envDefault:"lazy"`

	// ProfileGraceDelay keeps the session loading after a transient profile failure.
	ProfileGraceDelay time.Duration `env:"AUTH_PROFILE_GRACE_DELAY" envDefault:"500ms"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// Native bridge configuration (used when Platform=native).
	Native NativeConfig `envPrefix:"NATIVE_"`
}

// Sanitize normalises enum-like values, falling back to defaults for unknown ones.
func (c *AuthConfig) Sanitize() {
	c.Platform = oneOf(c.Platform, "web", "web", "native")
	c.PasswordFlow = oneOf(c.PasswordFlow, "backend", "backend", "federated")
	c.ReauthPolicy = oneOf(c.ReauthPolicy, "lazy", "lazy", "eager")
	if c.ProfileGraceDelay < 0 {
		c.ProfileGraceDelay = 0
	}
	c.OAuth.DiscoveryURL = strings.TrimSpace(c.OAuth.DiscoveryURL)
}

// OAuthReady reports whether enough OIDC settings are present to build a provider.
func (c *AuthConfig) OAuthReady() bool {
	return c.OAuth.DiscoveryURL != "" && c.OAuth.ClientID != ""
}

func oneOf(v, fallback string, allowed ...string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}
