package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes a key from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Del(ctx, key).Err() // Delete key from Redis
}

// DeleteCachePrefix deletes every key starting with prefix
func DeleteCachePrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
	iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := DeleteCache(ctx, rdb, iter.Val()); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Cache is a read-through JSON cache. A nil Cache or one without a client
// misses every lookup and ignores writes.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache wraps rdb; rdb may be nil
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.rdb != nil }

// Get loads key into dest and reports whether it was present
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	return GetCache(ctx, c.rdb, key, dest)
}

// Set stores value under key for the cache TTL
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if !c.enabled() {
		return nil
	}
	return SetCache(ctx, c.rdb, key, value, c.ttl)
}

// Invalidate drops every key under prefix
func (c *Cache) Invalidate(ctx context.Context, prefix string) error {
	if !c.enabled() {
		return nil
	}
	return DeleteCachePrefix(ctx, c.rdb, prefix)
}
