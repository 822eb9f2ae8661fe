package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/nilavanti/internal/models"
	"github.com/redis/go-redis/v9"
)

const resetKeyPrefix = "nilavanti:reset:"

// RedisResetStore holds single-use password reset tokens.
type RedisResetStore struct {
	rdb *redis.Client
}

// NewRedisResetStore returns a reset token store backed by rdb.
func NewRedisResetStore(rdb *redis.Client) *RedisResetStore {
	return &RedisResetStore{rdb: rdb}
}

// Put associates token with userID for ttl.
func (st *RedisResetStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := st.rdb.Set(ctx, resetKeyPrefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

// Take consumes token and returns the user it was issued for. A second
// Take of the same token yields models.ErrResetTokenInvalid.
func (st *RedisResetStore) Take(ctx context.Context, token string) (string, error) {
	userID, err := st.rdb.GetDel(ctx, resetKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", models.ErrResetTokenInvalid
		}
		return "", fmt.Errorf("take reset token: %w", err)
	}
	return userID, nil
}
