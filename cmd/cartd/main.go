// Command cartd serves the storefront cart API: accounts, per-user carts and
// product lookup.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/storefront/cartsync/internal/api"
	mongorepo "github.com/storefront/cartsync/internal/infrastructure/db/mongo"
	redisstore "github.com/storefront/cartsync/internal/infrastructure/db/redis"
	"github.com/storefront/cartsync/internal/pkg/config"
	"github.com/storefront/cartsync/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadServer(ctx)
	if err != nil {
		l := logger.Init(logger.Options{Service: "cartd"})
		l.Error().Err(err).Msg("invalid configuration")
		return err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "cartd",
	})

	mongoClient, db, err := mongorepo.Connect(ctx, cfg.Mongo, log)
	if err != nil {
		log.Error().Err(err).Msg("mongodb unavailable")
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisstore.Connect(ctx, cfg.Redis, log)
	if err != nil {
		log.Error().Err(err).Msg("redis unavailable")
		return err
	}
	defer rdb.Close()

	if err := mongorepo.NewAuthRepository(db).EnsureIndexes(ctx); err != nil {
		log.Error().Err(err).Msg("could not create indexes")
		return err
	}

	e := api.NewRouter(ctx, db, rdb, api.RouterConfig{
		JWTSecret:   cfg.JWTSecret,
		TokenTTL:    cfg.TokenTTL,
		CartWorkers: cfg.CartWorkers,
	}, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("cartd listening")
		if err := e.Start(":" + cfg.Port); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return err
	}
	return nil
}
