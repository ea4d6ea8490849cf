package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces session keys when no prefix is configured.
const DefaultKeyPrefix = "session:"

// RedisStore is a Store that keeps sessions as JSON strings in Redis. Every Save refreshes
// the TTL, so abandoned conversations expire on their own.
type RedisStore[T any] struct {
	client goredis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed store. A zero ttl keeps sessions until deleted.
func NewRedisStore[T any](client goredis.Cmdable, prefix string, ttl time.Duration) *RedisStore[T] {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore[T]{client: client, prefix: prefix, ttl: ttl}
}

// Load implements Store.
func (r *RedisStore[T]) Load(ctx context.Context, userID int64) (T, bool, error) {
	var zero T
	if r.client == nil {
		return zero, false, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("load session: %w", err)
	}

	var session T
	if err := json.Unmarshal(raw, &session); err != nil {
		return zero, false, fmt.Errorf("decode session: %w", err)
	}
	return session, true, nil
}

// Save implements Store.
func (r *RedisStore[T]) Save(ctx context.Context, userID int64, session T) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete implements Store.
func (r *RedisStore[T]) Delete(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisStore[T]) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}
