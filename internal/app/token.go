package app

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// TokenStore persists the provider session token across sessions.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// TokenRequester asks the provider for a fresh session token.
type TokenRequester interface {
	RequestToken(ctx context.Context) (string, error)
}

// TokenProvider hands out the stored session token, requesting a new one from
// the provider when none is stored. Concurrent requests are collapsed into a
// single upstream call.
type TokenProvider struct {
	store     TokenStore
	requester TokenRequester
	sf        singleflight.Group
}

func NewTokenProvider(store TokenStore, requester TokenRequester) *TokenProvider {
	return &TokenProvider{store: store, requester: requester}
}

func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if token, err := p.store.Token(ctx); err == nil && token != "" {
		return token, nil
	}

	result, err, _ := p.sf.Do("session-token", func() (interface{}, error) {
		// Re-check the store in case another caller filled it.
		if token, err := p.store.Token(ctx); err == nil && token != "" {
			return token, nil
		}
		token, err := p.requester.RequestToken(ctx)
		if err != nil {
			return "", err
		}
		if err := p.store.SetToken(ctx, token); err != nil {
			return "", err
		}
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Clear discards the stored token, forcing a fresh request on next use. Called
// when the provider reports the token expired.
func (p *TokenProvider) Clear(ctx context.Context) error {
	return p.store.ClearToken(ctx)
}
