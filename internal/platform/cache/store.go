package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a TTL key-value cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore implements Store over Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client; prefix namespaces every key.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get returns the stored value and whether it was present.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("platform/cache: get %s: %w", key, err)
	}
	return payload, true, nil
}

// Put stores value for ttl.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("platform/cache: put %s: ttl must be positive", key)
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("platform/cache: put %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Key joins parts with ':'.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Remember returns the cached value for key or computes it with loader and
// stores it for ttl. A nil store always calls loader. Store failures are
// reported through onErr and never hide the loader result.
func Remember[T any](ctx context.Context, store Store, key string, ttl time.Duration, loader func(context.Context) (T, error), onErr func(error)) (T, error) {
	var zero T
	if loader == nil {
		return zero, errors.New("platform/cache: loader required")
	}
	if store == nil {
		return loader(ctx)
	}
	payload, ok, err := store.Get(ctx, key)
	if err != nil && onErr != nil {
		onErr(err)
	}
	if ok {
		var cached T
		err := json.Unmarshal(payload, &cached)
		if err == nil {
			return cached, nil
		}
		if onErr != nil {
			onErr(fmt.Errorf("platform/cache: decode %s: %w", key, err))
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return zero, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return zero, err
	}
	if err := store.Put(ctx, key, raw, ttl); err != nil && onErr != nil {
		onErr(err)
	}
	return value, nil
}
