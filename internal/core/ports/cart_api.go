package ports

import (
	"context"

	"github.com/storefront/cartsync/internal/core/domain"
)

// CartAPI is the remote cart collaborator as seen by the client.
// Both methods return domain.ErrUnauthorized for a 401-class response.
type CartAPI interface {
	// FetchCart returns the account's cart. A missing cart is an empty cart,
	// not an error.
	FetchCart(ctx context.Context) (*domain.ServerCart, error)
	// PushCart overwrites the account's cart with lines.
	PushCart(ctx context.Context, lines []domain.CartLine) error
}

// CatalogAPI looks up products so their metadata and price can be
// snapshotted into a new cart line.
type CatalogAPI interface {
	Product(ctx context.Context, id int64) (*domain.Product, error)
}
