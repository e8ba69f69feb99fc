package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// TokenStore persists the opaque bearer token per browser.
// Load returns "" with a nil error when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, token string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps tokens in process memory with a TTL.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates a store whose entries expire after ttl.
// A zero ttl keeps entries until deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	exp := ttl
	if exp <= 0 {
		exp = cache.NoExpiration
	}
	return &MemoryStore{cache: cache.New(exp, 10*time.Minute)}
}

func (m *MemoryStore) Load(_ context.Context, key string) (string, error) {
	if v, ok := m.cache.Get(key); ok {
		return v.(string), nil
	}
	return "", nil
}

func (m *MemoryStore) Save(_ context.Context, key, token string) error {
	m.cache.Set(key, token, cache.DefaultExpiration)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

const redisKeyPrefix = "casamx_token:"

// RedisStore keeps tokens in Redis so sessions survive restarts and are
// shared between replicas.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore parses redisURL and returns a connected store.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Load(ctx context.Context, key string) (string, error) {
	token, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

func (r *RedisStore) Save(ctx context.Context, key, token string) error {
	if err := r.client.Set(ctx, redisKeyPrefix+key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// Ping checks the connection, for readiness probes.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var (
	_ TokenStore = (*MemoryStore)(nil)
	_ TokenStore = (*RedisStore)(nil)
)
