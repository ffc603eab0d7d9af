package nativebridge

// Package nativebridge provides the platform sign-in bridge for native builds.
// On a desktop or CLI host the platform SDK hands over an ID token through
// configuration or a file written by the companion shell.

import (
	"context"
	"fmt"
	"os"
	"strings"

	domainauth "github.com/pastibot/companion/internal/domain/auth"
	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/pastibot/companion/internal/ports"
)

// Config maps provider names to credentials.
type Config struct {
	// IDTokens holds literal ID tokens keyed by provider (e.g. "google").
	IDTokens map[string]string
	// TokenFiles holds paths to files containing an ID token, keyed by provider.
	// Files are read on every SignIn so a fresh token can be dropped in.
	TokenFiles map[string]string
}

// Bridge implements ports.NativeBridge.
type Bridge struct {
	tokens map[string]string
	files  map[string]string
}

var _ ports.NativeBridge = (*Bridge)(nil)

// New returns a bridge over cfg.
func New(cfg Config) *Bridge {
	b := &Bridge{tokens: map[string]string{}, files: map[string]string{}}
	for k, v := range cfg.IDTokens {
		b.tokens[strings.ToLower(k)] = v
	}
	for k, v := range cfg.TokenFiles {
		b.files[strings.ToLower(k)] = v
	}
	return b
}

// SignIn returns the credential configured for provider.
func (b *Bridge) SignIn(ctx context.Context, provider string) (domainauth.NativeCredential, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.NativeCredential{}, apperrors.FromTransport(err)
	}
	key := strings.ToLower(provider)

	if path, ok := b.files[key]; ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domainauth.NativeCredential{}, apperrors.Wrapf(err, apperrors.ErrCodeCredential, "read %s credential", provider)
		}
		if tok := strings.TrimSpace(string(data)); tok != "" {
			return domainauth.NativeCredential{Provider: provider, IDToken: tok}, nil
		}
	}
	if tok := b.tokens[key]; tok != "" {
		return domainauth.NativeCredential{Provider: provider, IDToken: tok}, nil
	}
	return domainauth.NativeCredential{}, apperrors.Credential(fmt.Sprintf("%s sign-in is not available on this device", provider))
}
