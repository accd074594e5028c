package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

// RedisOptions Redis 連接參數
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int           // <= 0 時使用 10
	DialTimeout time.Duration // <= 0 時使用 5s
}

// RedisClient 行情、資金費率與下單共用的 Redis 連接
type RedisClient struct {
	rdb    *redis.Client
	addr   string
	logger logger.Logger
}

// NewRedisClient 建立連接並先 PING 一次，連不上直接返回錯誤
func NewRedisClient(ctx context.Context, opts RedisOptions, log logger.Logger) (*RedisClient, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		PoolSize:    opts.PoolSize,
		DialTimeout: opts.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", opts.Addr, err)
	}

	log.Info("Redis connected", map[string]any{
		"addr":     opts.Addr,
		"db":       opts.DB,
		"poolSize": opts.PoolSize,
	})

	return &RedisClient{rdb: rdb, addr: opts.Addr, logger: log}, nil
}

// Client 底層 go-redis 客戶端
func (c *RedisClient) Client() *redis.Client {
	return c.rdb
}

// Ping 健康檢查
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PoolStats 連接池統計
func (c *RedisClient) PoolStats() *redis.PoolStats {
	return c.rdb.PoolStats()
}

func (c *RedisClient) Close() error {
	stats := c.rdb.PoolStats()
	c.logger.Info("Closing Redis connection", map[string]any{
		"addr":       c.addr,
		"totalConns": stats.TotalConns,
		"hits":       stats.Hits,
		"misses":     stats.Misses,
	})
	return c.rdb.Close()
}
