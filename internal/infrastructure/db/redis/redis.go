package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/storefront/cartsync/internal/pkg/config"
)

const defaultDialTimeout = 5 * time.Second

// Options maps the environment settings onto go-redis options. The dial
// timeout also bounds the startup ping.
func Options(cfg config.RedisConfig) *redis.Options {
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}
	return &redis.Options{
		Addr:        cfg.Addr,
		DB:          cfg.DB,
		Password:    cfg.Password,
		PoolSize:    cfg.PoolSize,
		DialTimeout: dial,
	}
}

// Connect opens a client and pings it once. Both cartd (token revocation)
// and cartsync (shared cart storage) start through here.
func Connect(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*redis.Client, error) {
	opts := Options(cfg)
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	log.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Int("pool_size", client.Options().PoolSize).
		Msg("redis connected")
	return client, nil
}
