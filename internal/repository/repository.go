package repository

import (
	"context"
)

// Key prefixes for the per-session values. The session id is appended.
const (
	CartKeyPrefix  = "storefront:cart:"
	TokenKeyPrefix = "storefront:token:"
)

// CartRepository persists the serialized cart of a browser session. The
// value is stored as raw JSON so that hydration can validate it before
// trusting any part of it.
type CartRepository interface {
	// GetCart returns the stored cart JSON, or an error wrapping
	// apperrors.ErrNotFound when the session has no cart.
	GetCart(ctx context.Context, sessionID string) ([]byte, error)

	// SaveCart overwrites the stored cart.
	SaveCart(ctx context.Context, sessionID string, data []byte) error

	// DeleteCart removes the stored cart. Deleting a missing cart is not an error.
	DeleteCart(ctx context.Context, sessionID string) error
}

// TokenRepository persists the backend bearer token of a browser session.
type TokenRepository interface {
	GetToken(ctx context.Context, sessionID string) (string, error)
	SaveToken(ctx context.Context, sessionID, token string) error
	DeleteToken(ctx context.Context, sessionID string) error
}

// SessionRepository is the full durable store of a session.
type SessionRepository interface {
	CartRepository
	TokenRepository
	Ping(ctx context.Context) error
}
