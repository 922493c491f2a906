package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

// NewRedisClient returns nil when REDIS_ADDR is unset or the server does not
// answer a ping; callers fall back to in-process rate limiting.
func NewRedisClient(cfg Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		utils.ErrorLogger.WithError(err).Warn("redis unavailable, using in-memory rate limiting")
		_ = client.Close()
		return nil
	}
	return client
}
