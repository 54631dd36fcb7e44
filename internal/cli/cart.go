package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/storefront/cartsync/internal/cart"
	"github.com/storefront/cartsync/internal/core/domain"
)

type addOptions struct {
	*RootOptions
	Size     int64
	Quantity int
}

// NewAddCommand adds a catalog product to the local cart.
func NewAddCommand(root *RootOptions) *cobra.Command {
	opts := &addOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Example: `  cartsync add 12
  cartsync add 12 --size 3 --qty 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || productID <= 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid product id %q", args[0]))
			}
			if opts.Quantity <= 0 {
				return NewExitError(ExitCommandError, "quantity must be positive")
			}
			return withCart(cmd, root, func(ctx context.Context, a *App) (string, error) {
				product, err := a.Remote.Product(ctx, productID)
				if err != nil {
					return "", WrapExitError(ExitFailure, "product lookup failed", err)
				}
				price, sizeName, ok := product.PriceFor(opts.Size)
				if !ok {
					return "", NewExitError(ExitFailure, sizeHint(product, opts.Size))
				}
				a.Session.Cart.Add(ctx, cart.AddLineInput{
					ProductID: product.ID,
					SizeID:    opts.Size,
					UnitPrice: price,
					Quantity:  opts.Quantity,
					Metadata: domain.LineMetadata{
						Name:     product.Name,
						Slug:     product.Slug,
						Image:    product.Image,
						SizeName: sizeName,
					},
				})
				return fmt.Sprintf("added %d x %s", opts.Quantity, lineLabel(product.Name, sizeName)), nil
			})
		},
	}

	cmd.Flags().Int64Var(&opts.Size, "size", domain.NoSize, "size id, for products with sizes")
	cmd.Flags().IntVarP(&opts.Quantity, "qty", "q", 1, "quantity to add")

	return cmd
}

// NewRemoveCommand removes one line from the local cart.
func NewRemoveCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <key>",
		Aliases: []string{"rm"},
		Short:   "Remove a line from the cart",
		Long:    "Remove a line by its key as printed by show: <product-id> or <product-id>/<size-id>.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseLineKey(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid line key", err)
			}
			return withCart(cmd, root, func(ctx context.Context, a *App) (string, error) {
				if _, ok := a.Session.Cart.Snapshot().Line(key); !ok {
					return "", NewExitError(ExitFailure, fmt.Sprintf("no line %s in cart", key))
				}
				a.Session.Cart.Remove(ctx, key)
				return "removed " + key.String(), nil
			})
		},
	}
}

// NewSetCommand sets the quantity of one line. Zero removes the line.
func NewSetCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <quantity>",
		Short: "Set the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseLineKey(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid line key", err)
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil || qty < 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid quantity %q", args[1]))
			}
			return withCart(cmd, root, func(ctx context.Context, a *App) (string, error) {
				if _, ok := a.Session.Cart.Snapshot().Line(key); !ok {
					return "", NewExitError(ExitFailure, fmt.Sprintf("no line %s in cart", key))
				}
				a.Session.Cart.UpdateQuantity(ctx, key, qty)
				return fmt.Sprintf("set %s to %d", key, qty), nil
			})
		},
	}
}

// NewShowCommand prints the local cart.
func NewShowCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"ls"},
		Short:   "Show the local cart",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := root.open(ctx, AppOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			return root.formatter(cmd.OutOrStdout()).Cart("", a.Session.Cart.Load(ctx))
		},
	}
}

// NewClearCommand empties the local cart. An empty cart is never uploaded,
// so the account cart is left as it was.
func NewClearCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the local cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(cmd, root, func(ctx context.Context, a *App) (string, error) {
				a.Session.Cart.Clear(ctx)
				return "cart cleared", nil
			})
		},
	}
}

// withCart loads the cart, applies fn and uploads the result when logged in.
// A failed upload is reported but does not fail the command: the change is
// already saved locally and the next sync will carry it.
func withCart(cmd *cobra.Command, root *RootOptions, fn func(ctx context.Context, a *App) (string, error)) error {
	ctx := cmd.Context()
	a, err := root.open(ctx, AppOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	a.Session.Cart.Load(ctx)
	a.Session.Observer.Refresh(ctx)

	status, err := fn(ctx, a)
	if err != nil {
		return err
	}

	if a.Session.Authenticated() {
		switch err := a.Session.Scheduler.PushNow(ctx); {
		case errors.Is(err, domain.ErrUnauthorized):
			status += " (session expired, logged out)"
		case err != nil:
			status += " (not synced)"
		}
	}
	return root.formatter(cmd.OutOrStdout()).Cart(status, a.Session.Cart.Snapshot())
}

func parseLineKey(s string) (domain.LineKey, error) {
	product, size, hasSize := strings.Cut(s, "/")
	productID, err := strconv.ParseInt(product, 10, 64)
	if err != nil || productID <= 0 {
		return domain.LineKey{}, fmt.Errorf("bad product id in %q", s)
	}
	key := domain.LineKey{ProductID: productID}
	if hasSize {
		sizeID, err := strconv.ParseInt(size, 10, 64)
		if err != nil || sizeID <= 0 {
			return domain.LineKey{}, fmt.Errorf("bad size id in %q", s)
		}
		key.SizeID = sizeID
	}
	return key, nil
}

func sizeHint(p *domain.Product, size int64) string {
	if len(p.Sizes) == 0 {
		return fmt.Sprintf("%s has no sizes", p.Name)
	}
	ids := make([]string, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		ids = append(ids, fmt.Sprintf("%d (%s)", s.ID, s.Name))
	}
	if size == domain.NoSize {
		return fmt.Sprintf("%s needs a size: %s", p.Name, strings.Join(ids, ", "))
	}
	return fmt.Sprintf("%s has no size %d: %s", p.Name, size, strings.Join(ids, ", "))
}
