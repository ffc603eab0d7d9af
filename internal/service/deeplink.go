package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	domainauth "github.com/pastibot/companion/internal/domain/auth"
	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/pastibot/companion/internal/ports"
)

const socialSuccess = "social-success"

// ParseDeepLink extracts a backend token from an app return URL such as
// com.pastibot.app://social-success?token=... or https://host/social-success#access_token=...
// ok is false when raw is not a sign-in return link.
func ParseDeepLink(raw string) (token string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if u.Host != socialSuccess && !strings.Contains(u.Path, socialSuccess) && u.Fragment == "" {
		return "", false
	}
	if t := u.Query().Get("token"); t != "" {
		return t, true
	}
	if u.Fragment != "" {
		frag, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return "", false
		}
		for _, key := range []string{"token", "access_token"} {
			if t := frag.Get(key); t != "" {
				return t, true
			}
		}
	}
	return "", false
}

// IsRedirectReturn reports whether raw is an authorization redirect: a URL
// whose query carries state together with code or error.
func IsRedirectReturn(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	q := u.Query()
	return q.Get("state") != "" && (q.Get("code") != "" || q.Get("error") != "")
}

// HandleDeepLink completes a sign-in from a return link. Links carrying a
// backend token are adopted directly. Authorization redirects are handed to
// the identity provider, whose published identity reaches the session through
// the observer. It reports whether raw was a sign-in return link.
func (s *Session) HandleDeepLink(ctx context.Context, raw string) (bool, error) {
	if token, ok := ParseDeepLink(raw); ok {
		s.logger.InfoContext(ctx, "adopting token from deep link")
		return true, s.AdoptToken(ctx, token)
	}
	if !IsRedirectReturn(raw) {
		return false, nil
	}
	return true, s.completeRedirect(ctx, strings.TrimSpace(raw))
}

// BeginRedirectSignIn starts a two-step federated sign-in and returns the URL
// the user must open. The flow ends when the redirect reaches HandleDeepLink.
func (s *Session) BeginRedirectSignIn(ctx context.Context, provider string) (string, error) {
	if s.redirects == nil {
		return "", fmt.Errorf("redirect sign-in: %w", ports.ErrUnsupported)
	}
	authURL, _, err := s.redirects.BeginRedirect(ctx, provider)
	if err != nil {
		return "", err
	}
	return authURL, nil
}

func (s *Session) completeRedirect(ctx context.Context, raw string) error {
	if s.redirects == nil {
		return fmt.Errorf("redirect sign-in: %w", ports.ErrUnsupported)
	}
	s.logger.InfoContext(ctx, "completing redirect sign-in")

	s.mu.Lock()
	s.observeErr = nil
	s.mu.Unlock()

	id, err := s.redirects.HandleRedirect(ctx, raw)
	if err != nil {
		return err
	}
	if s.identity == nil {
		// Nobody observes the provider; sign in with the identity directly.
		return s.syncIdentity(ctx, id)
	}

	s.mu.Lock()
	phase := s.phase
	anonymous := s.token == ""
	observeErr := s.observeErr
	s.observeErr = nil
	s.mu.Unlock()

	switch {
	case phase != domainauth.PhaseSettled:
		// Parked; Start adopts it once restore settles.
		return nil
	case observeErr != nil:
		return observeErr
	case anonymous:
		return apperrors.Credential("redirect sign-in did not establish a session")
	default:
		return nil
	}
}
