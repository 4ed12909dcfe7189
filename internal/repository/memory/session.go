package memory

import (
	"context"
	"sync"

	apperrors "github.com/gearvn/storefront/pkg/errors"
)

// SessionRepository keeps session values in process memory. It is used for
// local runs and tests; values do not survive a restart.
type SessionRepository struct {
	mu     sync.RWMutex
	carts  map[string][]byte
	tokens map[string]string
}

// NewSessionRepository creates an empty in-memory repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		carts:  make(map[string][]byte),
		tokens: make(map[string]string),
	}
}

// GetCart returns a copy of the stored cart JSON.
func (r *SessionRepository) GetCart(_ context.Context, sessionID string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.carts[sessionID]
	if !ok {
		return nil, apperrors.NotFound("cart", sessionID)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// SaveCart stores a copy of data.
func (r *SessionRepository) SaveCart(_ context.Context, sessionID string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[sessionID] = stored
	return nil
}

// DeleteCart removes the stored cart.
func (r *SessionRepository) DeleteCart(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, sessionID)
	return nil
}

// GetToken returns the stored bearer token.
func (r *SessionRepository) GetToken(_ context.Context, sessionID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[sessionID]
	if !ok {
		return "", apperrors.NotFound("token", sessionID)
	}
	return token, nil
}

// SaveToken stores the bearer token.
func (r *SessionRepository) SaveToken(_ context.Context, sessionID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[sessionID] = token
	return nil
}

// DeleteToken removes the bearer token.
func (r *SessionRepository) DeleteToken(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, sessionID)
	return nil
}

// Ping always succeeds.
func (r *SessionRepository) Ping(context.Context) error {
	return nil
}
