package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/reconcile"
)

// NewSyncCommand runs one reconciliation against the account cart.
func NewSyncCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local cart with the account cart now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := root.formatter(cmd.OutOrStdout())

			a, err := root.open(ctx, AppOptions{
				Prompter: NewTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
			})
			if err != nil {
				return err
			}
			defer a.Close()

			a.Session.Cart.Load(ctx)
			a.Session.Observer.Refresh(ctx)
			if !a.Session.Authenticated() {
				return NewExitError(ExitFailure, "not logged in")
			}

			res := a.Session.Engine.Reconcile(ctx)
			if errors.Is(res.Err, domain.ErrUnauthorized) {
				return WrapExitError(ExitFailure, "session expired, logged out", res.Err)
			}
			return out.Cart(describe(res), a.Session.Cart.Snapshot())
		},
	}
}

// NewWatchCommand keeps a client instance running: it follows logins and
// logouts made by other instances, reconciles on login and uploads local
// changes until interrupted.
func NewWatchCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run a long-lived client that keeps the cart in sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, root)
		},
	}
}

func runWatch(ctx context.Context, cmd *cobra.Command, root *RootOptions) error {
	out := root.formatter(cmd.OutOrStdout())

	a, err := root.open(ctx, AppOptions{
		Watch:    true,
		Prompter: NewTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
		OnReconciled: func(res reconcile.Result) {
			_ = out.Message("reconciled: " + describe(res))
		},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)

	if a.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              a.MetricsAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			a.Log.Info().Str("addr", a.MetricsAddr).Msg("serving metrics")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		unsubscribe := a.Session.Observer.Subscribe(func(authenticated bool) {
			if authenticated {
				_ = out.Message("logged in")
				return
			}
			_ = out.Message("logged out")
		})
		defer unsubscribe()

		if err := a.Session.Start(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to start session", err)
		}
		_ = out.Cart("watching for changes, press Ctrl-C to stop", a.Session.Cart.Snapshot())
		<-ctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "watch stopped", err)
	}
	return nil
}
