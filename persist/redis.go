package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces keys written by RedisStore.
const DefaultRedisPrefix = "docstore:"

// RedisStore implements Store on Redis. Expiry is delegated to Redis TTLs.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type redisEntry struct {
	Value     []byte `json:"v"`
	IsError   bool   `json:"e,omitempty"`
	CreatedAt int64  `json:"c"`
	ExpiresAt int64  `json:"x,omitempty"`
}

// NewRedisStore creates a Redis-backed store. An empty prefix falls back to
// DefaultRedisPrefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisStoreFromURL creates a store from a URL such as
// "redis://localhost:6379/0".
func NewRedisStoreFromURL(url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("persist: failed to parse redis URL: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts), prefix), nil
}

// Prefix returns the key prefix.
func (s *RedisStore) Prefix() string {
	return s.prefix
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: redis get failed: %w", err)
	}

	var re redisEntry
	if err := json.Unmarshal(data, &re); err != nil {
		return nil, fmt.Errorf("persist: failed to decode entry: %w", err)
	}
	e := &Entry{
		Key:       key,
		Value:     re.Value,
		IsError:   re.IsError,
		CreatedAt: fromUnixMillis(re.CreatedAt),
		ExpiresAt: fromUnixMillis(re.ExpiresAt),
	}
	if e.Expired(time.Now()) {
		return nil, nil
	}
	return e, nil
}

func (s *RedisStore) Set(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.Key == "" {
		return ErrInvalidKey
	}
	now := time.Now()
	created := entry.CreatedAt
	if created.IsZero() {
		created = now
	}
	data, err := json.Marshal(redisEntry{
		Value:     entry.Value,
		IsError:   entry.IsError,
		CreatedAt: unixMillis(created),
		ExpiresAt: unixMillis(entry.ExpiresAt),
	})
	if err != nil {
		return fmt.Errorf("persist: failed to encode entry: %w", err)
	}
	return s.client.Set(ctx, s.prefix+entry.Key, data, ttlOf(entry, now)).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Ping checks that the connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
