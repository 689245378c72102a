package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "prescripto:token"

type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a Redis-backed credential slot under key.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{
		client: client,
		key:    key,
	}
}

func (r *RedisStore) Load(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil // empty slot
	}
	if err != nil {
		return "", fmt.Errorf("session: failed to load token: %w", err)
	}
	return val, nil
}

func (r *RedisStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("session: refusing to save empty token")
	}
	// no TTL: the server decides expiry, the client only forgets on rejection
	if err := r.client.Set(ctx, r.key, token, 0).Err(); err != nil {
		return fmt.Errorf("session: failed to save token: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("session: failed to clear token: %w", err)
	}
	return nil
}
