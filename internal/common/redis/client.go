package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/config"

	"github.com/go-redis/redis/v8"
)

// Connect 创建客户端并确认可达；不可达时关闭客户端并返回错误
// Every command is bounded by cmdTimeout so a stalled server cannot hold a
// request past the storage timeout.
func Connect(ctx context.Context, cfg *config.RedisConfig, cmdTimeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cmdTimeout,
		ReadTimeout:  cmdTimeout,
		WriteTimeout: cmdTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cmdTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", cfg.Addr, err)
	}
	return client, nil
}

// Close tolerates a nil client.
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
