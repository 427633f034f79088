package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

var (
	redisClient *redis.Client
	redisErr    error
	redisOnce   sync.Once
)

// GetRedisClient returns a singleton redis client for the given URL
// (redis://[:password@]host:port/db). The roster store lives here. A parse
// failure is latched so every later call reports it instead of touching a
// nil client.
func GetRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	redisOnce.Do(func() {
		opt, parseErr := redis.ParseURL(url)
		if parseErr != nil {
			redisErr = fmt.Errorf("failed to parse redis URL: %w", parseErr)
			return
		}
		redisClient = redis.NewClient(opt)
	})

	if redisErr != nil {
		return nil, redisErr
	}
	if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
		return nil, fmt.Errorf("redis ping failed: %w", pingErr)
	}

	return redisClient, nil
}
