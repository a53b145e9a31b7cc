package store

import (
	"context"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
)

// Session is an opaque token bound to one user until ExpiresAt.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore binds opaque tokens to user ids. Every mutation is atomic per
// token: Create never overwrites an existing binding and Rotate fails rather
// than losing a concurrent Destroy or Rotate of the same token.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (Session, error)
	// Resolve returns the bound user id, ErrUnauthorized when the token is
	// unknown or expired.
	Resolve(ctx context.Context, token string) (int64, error)
	// Rotate replaces token with a fresh one carrying a fresh TTL.
	Rotate(ctx context.Context, token string) (Session, error)
	// Destroy removes the binding. Destroying an unknown token is not an error.
	Destroy(ctx context.Context, token string) error
}

const (
	DefaultSessionTTL = 24 * time.Hour
	sessionKeyPrefix  = "theia:session:"
	createAttempts    = 3
)

var errSessionChanged = domain.E(domain.KindUnauthorized, "session changed concurrently")
