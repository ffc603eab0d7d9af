package redis

// Package redis provides Redis-based adapters for the companion client.

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/pastibot/companion/internal/domain/auth"
	"github.com/pastibot/companion/internal/ports"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the key the bearer token is stored under.
const DefaultKey = "pastibot:auth:token"

// expiredTokenTTL keeps an already expired JWT just long enough for the
// restore that follows to see it and be rejected by the backend.
const expiredTokenTTL = time.Second

// TokenStore is a Redis-backed ports.TokenStore, useful when several
// companion processes on one host share a session.
// A JWT's exp claim becomes the key TTL so stale tokens age out on their own.
type TokenStore struct {
	client redis.UniversalClient
	key    string
	now    func() time.Time
}

var _ ports.TokenStore = (*TokenStore)(nil)

// NewTokenStore creates a new Redis token store under DefaultKey.
func NewTokenStore(client redis.UniversalClient) *TokenStore {
	return NewTokenStoreWithKey(client, DefaultKey)
}

// NewTokenStoreWithKey creates a Redis token store using a custom key.
func NewTokenStoreWithKey(client redis.UniversalClient, key string) *TokenStore {
	if key == "" {
		key = DefaultKey
	}
	return &TokenStore{client: client, key: key, now: time.Now}
}

// Load returns the stored token or an empty string when none is stored.
func (s *TokenStore) Load(ctx context.Context) (string, error) {
	tok, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return tok, nil
}

// Save stores token, replacing any previous value.
func (s *TokenStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if err := s.client.Set(ctx, s.key, token, tokenTTL(token, s.now())).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// tokenTTL returns the key TTL for token. Zero means no expiry and is only
// used for tokens without an exp claim.
func tokenTTL(token string, now time.Time) time.Duration {
	exp, ok := domainauth.TokenExpiry(token)
	if !ok {
		return 0
	}
	if until := exp.Sub(now); until > expiredTokenTTL {
		return until
	}
	return expiredTokenTTL
}

// Delete removes the stored token. Deleting a missing key is not an error.
func (s *TokenStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
