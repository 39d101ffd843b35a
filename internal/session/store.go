// Package session stores editor refresh sessions, keyed by the SHA-256 hash
// of the refresh token.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound covers unknown, expired and revoked tokens.
var ErrSessionNotFound = errors.New("refresh session not found or expired")

// Session is what a refresh token resolves to.
type Session struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is implemented by RedisStore and DBStore.
type Store interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (*Session, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}
