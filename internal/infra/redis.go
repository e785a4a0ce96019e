package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/umoja-bank/umoja/internal/config"
)

// NewRedisClient opens the Redis connection used for idempotency replay and
// login throttling. The client is named after the app so it is identifiable
// in CLIENT LIST on a shared instance.
func NewRedisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.ClientName = cfg.AppName

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
