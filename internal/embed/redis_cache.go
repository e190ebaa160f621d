package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Redis-backed embedding cache. It survives process
// restarts, which matters when the same corpus is re-indexed under
// several strategies in separate runs.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // 0 = no expiry
}

// NewRedisCache creates a new Redis cache backend.
// Returns error if connection fails.
func NewRedisCache(url string, ttlSeconds int) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: "bench:embed:",
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}, nil
}

// Get retrieves an embedding from Redis.
func (rc *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := rc.client.Get(ctx, rc.prefix+key).Bytes()
	if err != nil {
		// Treat lookup failures the same as misses; the provider recomputes.
		return nil, false
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, false
	}

	return embedding, true
}

// Set stores an embedding in Redis.
func (rc *RedisCache) Set(ctx context.Context, key string, embedding []float32) {
	data, err := json.Marshal(embedding)
	if err != nil {
		return
	}

	// Best effort: a failed cache write only costs a recompute later.
	rc.client.Set(ctx, rc.prefix+key, data, rc.ttl)
}

// Close closes the Redis connection.
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
