package app

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/freshmart/freshmart-pos/internal/platform/cache"
	"github.com/freshmart/freshmart-pos/internal/platform/db"
)

// Infra holds the shared connections of a process.
type Infra struct {
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	logger *slog.Logger
}

// OpenInfra connects to PostgreSQL and Redis.
func OpenInfra(ctx context.Context, cfg *Config, logger *slog.Logger) (*Infra, error) {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 20})
	if err != nil {
		return nil, err
	}
	client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Infra{Pool: pool, Redis: client, logger: logger}, nil
}

// AsynqRedis returns the asynq connection options for cfg.
func AsynqRedis(cfg *Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr}
}

// Close releases the connections.
func (i *Infra) Close() {
	if i == nil {
		return
	}
	if err := i.Redis.Close(); err != nil && i.logger != nil {
		i.logger.Warn("redis close", slog.Any("error", err))
	}
	i.Pool.Close()
}
