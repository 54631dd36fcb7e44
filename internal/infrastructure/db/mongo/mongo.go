package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storefront/cartsync/internal/pkg/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultTimeout        = 10 * time.Second
	appName               = "cartd"
)

// ClientOptions maps the environment settings onto driver options.
func ClientOptions(cfg config.MongoConfig) *options.ClientOptions {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	return opts
}

// Connect dials the cluster, pings the primary and returns the client with
// the cart database selected.
func Connect(ctx context.Context, cfg config.MongoConfig, log zerolog.Logger) (*mongo.Client, *mongo.Database, error) {
	opts := ClientOptions(cfg)

	connectCtx, cancel := context.WithTimeout(ctx, *opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	log.Info().Str("database", cfg.Database).Msg("mongo connected")
	return client, client.Database(cfg.Database), nil
}
