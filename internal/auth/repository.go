// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// Repository is the token revocation set. Entries expire with the token
// they revoke.
type Repository interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type repository struct {
	redis *redis.Client
	now   func() time.Time
}

func NewRepository(client *redis.Client) Repository {
	return &repository{redis: client, now: time.Now}
}

func (r *repository) Revoke(
	ctx context.Context,
	tokenID string,
	expiresAt time.Time,
) error {
	if tokenID == "" {
		return nil
	}

	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	if err := r.redis.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

func (r *repository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	exists, err := r.redis.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}

	return exists > 0, nil
}
