package tokenstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tradernet:session:"

// Redis is the shared token store for multi-instance deployments.
type Redis struct {
	client *redis.Client
}

var _ Store = (*Redis)(nil)

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Save(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	return r.client.Set(ctx, keyPrefix+tokenID, strconv.FormatInt(userID, 10), ttl).Err()
}

func (r *Redis) Valid(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Redis) Revoke(ctx context.Context, tokenID string) error {
	return r.client.Del(ctx, keyPrefix+tokenID).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
