package memory

// Package memory provides an in-process token store for ephemeral sessions.

import (
	"context"
	"errors"
	"sync"

	"github.com/pastibot/companion/internal/ports"
)

// TokenStore keeps the token in memory. Nothing survives a restart.
type TokenStore struct {
	mu    sync.Mutex
	token string
}

var _ ports.TokenStore = (*TokenStore)(nil)

// NewTokenStore returns an empty store.
func NewTokenStore() *TokenStore { return &TokenStore{} }

func (s *TokenStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *TokenStore) Save(_ context.Context, token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *TokenStore) Delete(context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}
