package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// BalanceKey is the cache key of a user's balance
func BalanceKey(userID string) string {
	return "balance:user:" + userID
}

// GetCache retrieves a value from Redis and unmarshals it into dest.
// A nil client behaves like an empty cache.
func GetCache(ctx context.Context, rdb redis.Cmdable, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // Caching disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb redis.Cmdable, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes a key from Redis
func DeleteCache(ctx context.Context, rdb redis.Cmdable, key string) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	return rdb.Del(ctx, key).Err() // Delete key from Redis
}

// BalanceVersionKey is bumped after every committed balance change
func BalanceVersionKey(userID string) string {
	return "balance:version:" + userID
}

// CacheVersion reads a version counter; an absent key or nil client is version 0
func CacheVersion(ctx context.Context, rdb redis.Cmdable, key string) (int64, error) {
	if rdb == nil {
		return 0, nil // Caching disabled
	}
	v, err := rdb.Get(ctx, key).Int64() // Current counter
	if err == redis.Nil {
		return 0, nil // Never bumped, or expired
	}
	return v, err
}

// BumpVersion increments a version counter and keeps it alive for ttl.
// ttl must outlive any cache entry stamped with the counter.
func BumpVersion(ctx context.Context, rdb redis.Cmdable, key string, ttl time.Duration) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	pipe := rdb.TxPipeline()   // INCR and EXPIRE together
	pipe.Incr(ctx, key)        // New version
	pipe.Expire(ctx, key, ttl) // Refresh lifetime
	_, err := pipe.Exec(ctx)
	return err
}
