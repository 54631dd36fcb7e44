package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storefront/cartsync/internal/reconcile"
)

type loginOptions struct {
	*RootOptions
	Email    string
	Password string
}

// NewLoginCommand logs in and reconciles the local cart with the account cart.
func NewLoginCommand(root *RootOptions) *cobra.Command {
	opts := &loginOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and reconcile this cart with the account cart",
		Example: `  cartsync login --email ana@example.com --password secret
  cartsync login --email ana@example.com --password secret --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *loginOptions) error {
	ctx := cmd.Context()
	out := opts.formatter(cmd.OutOrStdout())

	results := make(chan reconcile.Result, 1)
	a, err := opts.open(ctx, AppOptions{
		Prompter:     NewTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
		OnReconciled: func(r reconcile.Result) {
			select {
			case results <- r:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Session.Credentials.Present(ctx) {
		return out.Message("already logged in")
	}

	token, user, err := a.Remote.Login(ctx, opts.Email, opts.Password)
	if err != nil {
		return WrapExitError(ExitFailure, "login failed", err)
	}

	if err := a.Session.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}
	if err := a.Session.Login(ctx, token); err != nil {
		return WrapExitError(ExitCommandError, "failed to store credential", err)
	}

	res, err := awaitResult(ctx, results)
	if err != nil {
		return err
	}
	if res.Err != nil {
		a.Log.Warn().Err(res.Err).Msg("reconciliation incomplete")
	}
	return out.Cart(fmt.Sprintf("logged in as %s (%s)", user.Username, describe(res)), a.Session.Cart.Snapshot())
}

// NewLogoutCommand revokes the session on the server and drops the local
// credential. The local cart is kept.
func NewLogoutCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out, keeping the local cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := root.formatter(cmd.OutOrStdout())

			a, err := root.open(ctx, AppOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Session.Credentials.Present(ctx) {
				return out.Message("not logged in")
			}
			if err := a.Remote.Logout(ctx); err != nil {
				a.Log.Warn().Err(err).Msg("server logout failed, dropping local credential anyway")
			}
			a.Session.Logout(ctx)
			return out.Message("logged out")
		},
	}
}

func awaitResult(ctx context.Context, results <-chan reconcile.Result) (reconcile.Result, error) {
	select {
	case res := <-results:
		return res, nil
	case <-ctx.Done():
		return reconcile.Result{}, WrapExitError(ExitFailure, "reconciliation interrupted", ctx.Err())
	}
}

func describe(res reconcile.Result) string {
	switch res.Outcome {
	case reconcile.OutcomeNoConflict:
		return "carts already match"
	case reconcile.OutcomePushLocal:
		if res.Err != nil {
			return "local cart kept, upload failed"
		}
		return "local cart uploaded"
	case reconcile.OutcomeAdoptServer:
		return "account cart restored"
	case reconcile.OutcomeConflict:
		switch res.Choice {
		case reconcile.ChoiceAdoptServer:
			return "conflict resolved: account cart restored"
		case reconcile.ChoiceKeepLocal:
			return "conflict resolved: local cart kept"
		}
		return "conflict left unresolved"
	}
	return res.Outcome.String()
}
