// Package redis wraps go-redis connection setup and the event stream encoding.
package redis

import (
	"context"
	"fmt"

	"github.com/debranko/obedio-yacht-crew-management-sub003/common/config"

	"github.com/go-redis/redis/v8"
)

// Client is an alias so callers do not import go-redis directly
type Client = redis.Client

// Connect builds a client and pings it; the client is closed when the ping fails
func Connect(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", cfg.Addr, err)
	}
	return client, nil
}
