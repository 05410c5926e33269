// Package redis implements store.Store on top of Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alfredjeanlab/drivehub/internal/store"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "drivehub:session"

// ErrUnavailable wraps transport failures talking to Redis.
var ErrUnavailable = errors.New("redis unavailable")

// RedisStore keeps each record under "<prefix>:<sid>:user" and lets Redis
// expire it.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// Compile-time check that RedisStore implements store.Store.
var _ store.Store = (*RedisStore)(nil)

// New wraps an existing client.
func New(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Open parses a redis:// URL, connects and pings.
func Open(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return New(client, DefaultPrefix), nil
}

func (s *RedisStore) key(sid string) string {
	return s.prefix + ":" + sid + ":user"
}

func (s *RedisStore) GetSession(ctx context.Context, sid string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

func (s *RedisStore) PutSession(ctx context.Context, sid string, record []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(sid), record, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, s.key(sid)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// PurgeExpired is a no-op: Redis expires keys itself.
func (s *RedisStore) PurgeExpired(context.Context) (int64, error) {
	return 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
