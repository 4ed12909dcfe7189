package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gearvn/storefront/internal/repository"
	apperrors "github.com/gearvn/storefront/pkg/errors"
)

var _ repository.SessionRepository = (*SessionRepository)(nil)

// SessionRepository implements repository.SessionRepository using Redis.
type SessionRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSessionRepository creates a Redis-backed session repository. Keys are
// refreshed to ttl on every write; a zero ttl keeps them forever.
func NewSessionRepository(client redis.UniversalClient, ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		client: client,
		ttl:    ttl,
	}
}

// GetCart returns the stored cart JSON for sessionID.
func (r *SessionRepository) GetCart(ctx context.Context, sessionID string) ([]byte, error) {
	data, err := r.client.Get(ctx, repository.CartKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", sessionID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}
	return data, nil
}

// SaveCart stores the cart JSON for sessionID.
func (r *SessionRepository) SaveCart(ctx context.Context, sessionID string, data []byte) error {
	if err := r.client.Set(ctx, repository.CartKeyPrefix+sessionID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

// DeleteCart removes the stored cart for sessionID.
func (r *SessionRepository) DeleteCart(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, repository.CartKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}

// GetToken returns the bearer token stored for sessionID.
func (r *SessionRepository) GetToken(ctx context.Context, sessionID string) (string, error) {
	token, err := r.client.Get(ctx, repository.TokenKeyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.NotFound("token", sessionID)
		}
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return token, nil
}

// SaveToken stores the bearer token for sessionID.
func (r *SessionRepository) SaveToken(ctx context.Context, sessionID, token string) error {
	if err := r.client.Set(ctx, repository.TokenKeyPrefix+sessionID, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

// DeleteToken removes the bearer token for sessionID.
func (r *SessionRepository) DeleteToken(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, repository.TokenKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del token: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
