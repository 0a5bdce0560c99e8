package utils

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Firesolami/needles-sub001/config"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// GetRedis returns the process-wide Redis client, created on first use.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.Get()
		redisClient = redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			Logger.Warn("redis unreachable at startup", zap.Error(err))
		}
	})
	return redisClient
}

// SetRedis installs a client, replacing the lazily built one.
func SetRedis(c *redis.Client) {
	redisOnce.Do(func() {})
	redisClient = c
}

// PingRedis reports whether Redis answers.
func PingRedis(ctx context.Context) error {
	rc := GetRedis()
	if rc == nil {
		return errors.New("redis not configured")
	}
	return rc.Ping(ctx).Err()
}

// CloseRedis releases the client's connections.
func CloseRedis() error {
	if redisClient == nil {
		return nil
	}
	return redisClient.Close()
}
