package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested description is not cached
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cached description is corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store persists descriptions by custom object name.
type Store interface {
	// Get returns ErrCacheMiss when name is not cached.
	Get(ctx context.Context, name string) (*Description, error)
	Set(ctx context.Context, name string, desc *Description) error
	Delete(ctx context.Context, name string) error
	// Layer names the store in metrics.
	Layer() string
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Description
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Description)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, name string) (*Description, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	desc, ok := s.entries[name]
	if !ok {
		return nil, ErrCacheMiss
	}
	return desc, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, name string, desc *Description) error {
	if desc == nil {
		return fmt.Errorf("description cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = desc
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
	return nil
}

// Layer implements Store.
func (s *MemoryStore) Layer() string {
	return "memory"
}

// RedisKeyPrefix prefixes every description key in Redis.
const RedisKeyPrefix = "marketo:describe:"

// RedisStore shares descriptions between processes through Redis. Keys have
// no TTL.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Key returns the Redis key for a custom object name.
func Key(name string) string {
	return RedisKeyPrefix + name
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, name string) (*Description, error) {
	data, err := s.redis.Get(ctx, Key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var desc Description
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &desc, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, name string, desc *Description) error {
	if desc == nil {
		return fmt.Errorf("description cannot be nil")
	}

	data, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("marshal description: %w", err)
	}

	if err := s.redis.Set(ctx, Key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if err := s.redis.Del(ctx, Key(name)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Layer implements Store.
func (s *RedisStore) Layer() string {
	return "redis"
}
