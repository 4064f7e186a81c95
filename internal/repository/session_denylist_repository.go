package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionDenylistPrefix = "session:revoked:"

// SessionDenylistRepository remembers revoked token ids until they would
// have expired anyway.
type SessionDenylistRepository struct {
	client *redis.Client
}

// NewSessionDenylistRepository constructs a denylist backed by Redis.
func NewSessionDenylistRepository(client *redis.Client) *SessionDenylistRepository {
	return &SessionDenylistRepository{client: client}
}

// Revoke adds jti to the denylist for ttl. Non-positive TTLs are ignored
// since the token is already expired.
func (r *SessionDenylistRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, sessionDenylistPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke session %s: %w", jti, err)
	}
	return nil
}

// IsRevoked reports whether jti is on the denylist.
func (r *SessionDenylistRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, sessionDenylistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check session %s: %w", jti, err)
	}
	return n > 0, nil
}
