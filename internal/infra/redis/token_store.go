package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenKey = "trivia:session-token"

// TokenStore keeps the provider session token in Redis so restarts and
// multiple instances share one token. The TTL mirrors the provider's own
// token lifetime so a long-dead token ages out on its own.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

func (s *TokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, tokenKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return token, nil
}

func (s *TokenStore) SetToken(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, tokenKey, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (s *TokenStore) ClearToken(ctx context.Context) error {
	if err := s.client.Del(ctx, tokenKey).Err(); err != nil {
		return fmt.Errorf("redis clear token: %w", err)
	}
	return nil
}
