package domain

import "errors"

var (
	// ErrInvalidParameters is returned when the provider has no questions for
	// the requested filters. The player is sent back to adjust settings.
	ErrInvalidParameters = errors.New("no questions for the requested parameters")
	// ErrTokenExpired is returned when the provider rejects the session token.
	// The stored token must be cleared and identification restarted.
	ErrTokenExpired = errors.New("session token expired")
	// ErrSessionStarted is returned when Start is called on a session that
	// already left the loading state.
	ErrSessionStarted = errors.New("session already started")
)
