package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
)

const (
	keyPrefix  = "fccs:composition:"
	defaultTTL = 30 * time.Minute
)

// RedisStore is a Store shared between service instances. Entries expire
// after a fixed TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
}

// NewRedisStore connects to Redis and verifies the connection. A zero ttl
// uses 30 minutes.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}
	if ttl == 0 {
		ttl = defaultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// Get loads a composition stored by Put.
func (r *RedisStore) Get(ctx context.Context, key string) (domain.Composition, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.client == nil {
		return domain.Composition{}, false, errors.New("redis store is closed")
	}

	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Composition{}, false, nil
		}
		return domain.Composition{}, false, fmt.Errorf("get composition from redis: %w", err)
	}

	var c domain.Composition
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.Composition{}, false, fmt.Errorf("decode cached composition: %w", err)
	}
	return c, true, nil
}

// Put stores c under key with the store's TTL.
func (r *RedisStore) Put(ctx context.Context, key string, c domain.Composition) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.client == nil {
		return errors.New("redis store is closed")
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode composition: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("store composition in redis: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.client == nil {
		return errors.New("redis store is closed")
	}
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client. It is safe to call more than once.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}
