package otps

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/cache"
)

// RedisRepository keeps each pending code under otp:{user_id} with a TTL.
type RedisRepository struct {
	redis *cache.Redis
}

func NewRedisRepository(redis *cache.Redis) *RedisRepository {
	return &RedisRepository{redis: redis}
}

func Key(userID int64) string {
	return "otp:" + strconv.FormatInt(userID, 10)
}

func (r *RedisRepository) Store(ctx context.Context, userID int64, code string, ttl time.Duration) error {
	if err := r.redis.Set(ctx, Key(userID), code, ttl); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Consume deletes the key only if it still holds code, in one atomic step,
// so a concurrent Store of a newer code is never removed by an old one.
func (r *RedisRepository) Consume(ctx context.Context, userID int64, code string) (bool, error) {
	if code == "" {
		return false, nil
	}

	ok, err := r.redis.DeleteIfEquals(ctx, Key(userID), code)
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return ok, nil
}

func (r *RedisRepository) Discard(ctx context.Context, userID int64) error {
	if _, err := r.redis.Delete(ctx, Key(userID)); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
