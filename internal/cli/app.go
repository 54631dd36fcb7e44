package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/storefront/cartsync/internal/auth"
	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
	"github.com/storefront/cartsync/internal/infrastructure/cartapi"
	redisstore "github.com/storefront/cartsync/internal/infrastructure/db/redis"
	"github.com/storefront/cartsync/internal/pkg/config"
	"github.com/storefront/cartsync/internal/reconcile"
	"github.com/storefront/cartsync/internal/session"
	"github.com/storefront/cartsync/pkg/logger"
)

// Remote is everything the CLI asks of the storefront API.
type Remote interface {
	ports.CartAPI
	ports.CatalogAPI
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Logout(ctx context.Context) error
}

// AppOptions tunes how a command's App is assembled.
type AppOptions struct {
	Verbose      bool
	Watch        bool // subscribe to foreign storage writes
	Prompter     reconcile.Prompter
	OnReconciled func(reconcile.Result)
}

// App is one client instance as seen by a command.
type App struct {
	Session     *session.Session
	Remote      Remote
	MetricsAddr string
	Log         zerolog.Logger

	closers []func()
}

// Close releases the session and its connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// AppFactory builds an App for one command invocation.
type AppFactory func(ctx context.Context, opts AppOptions) (*App, error)

// DefaultFactory wires the production stack: environment config, Redis
// shared storage and the HTTP cart API.
func DefaultFactory(ctx context.Context, opts AppOptions) (*App, error) {
	cfg, err := config.LoadClient(ctx)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log := logger.Init(logger.Options{Level: level, Pretty: true, Service: "cartsync"})

	rdb, err := redisstore.Connect(ctx, cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("connect storage: %w", err)
	}
	st := redisstore.NewStorage(rdb, cfg.TabID)

	var remote *cartapi.Client
	sopts := session.Options{
		Storage: st,
		NewAPI: func(creds *auth.Credentials) ports.CartAPI {
			remote = cartapi.New(cfg.APIURL, creds, cartapi.WithTimeout(cfg.HTTPTimeout))
			return remote
		},
		Prompter:     opts.Prompter,
		PollInterval: cfg.PollInterval,
		Debounce:     cfg.Debounce,
		Heartbeat:    cfg.Heartbeat,
		Tolerance:    cfg.Tolerance,
		OnReconciled: opts.OnReconciled,
	}
	if opts.Watch {
		sopts.Watcher = st
	}
	sess, err := session.New(sopts, log)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &App{
		Session:     sess,
		Remote:      remote,
		MetricsAddr: cfg.MetricsAddr,
		Log:         log,
		closers:     []func(){func() { _ = rdb.Close() }, sess.Close},
	}, nil
}

func (o *RootOptions) open(ctx context.Context, app AppOptions) (*App, error) {
	app.Verbose = o.Verbose
	a, err := o.factory(ctx, app)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to start client", err)
	}
	return a, nil
}
