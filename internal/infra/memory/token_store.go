package memory

import (
	"context"
	"sync"
)

// TokenStore holds the provider session token in process memory.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

func (s *TokenStore) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *TokenStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *TokenStore) ClearToken(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
