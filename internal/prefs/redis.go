package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bcnelson/app-catalog/internal/domain"
)

// RedisOptions configures the Redis preference backend.
type RedisOptions struct {
	// URL is a redis:// connection URL.
	URL string
	// KeyPrefix namespaces keys per user or per install.
	KeyPrefix string
	// Expiration of stored keys; zero keeps them forever.
	Expiration time.Duration
}

// RedisStore keeps preferences in Redis so several clients share them.
type RedisStore struct {
	client  redis.Cmdable
	closer  func() error
	options RedisOptions
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to opts.URL.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	parsed, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(parsed)
	return &RedisStore{client: client, closer: client.Close, options: opts}, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.Cmdable, opts RedisOptions) *RedisStore {
	return &RedisStore{client: client, closer: func() error { return nil }, options: opts}
}

func (r *RedisStore) key(k string) string {
	return r.options.KeyPrefix + k
}

// Get returns the value stored under key.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores value under key.
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, r.options.Expiration).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error { return r.closer() }
