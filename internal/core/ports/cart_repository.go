package ports

import (
	"context"

	"github.com/storefront/cartsync/internal/core/domain"
)

// StoredCartItem is a cart line as persisted by the server: identity and
// quantity only. Prices come from the catalog at read time.
type StoredCartItem struct {
	ProductID int64
	SizeID    int64
	Quantity  int
}

// CartRepository persists one cart per user.
type CartRepository interface {
	// FindByUser returns domain.ErrCartNotFound when the user has no cart.
	FindByUser(ctx context.Context, userID string) ([]StoredCartItem, error)
	// Replace overwrites the user's cart, creating it when missing.
	Replace(ctx context.Context, userID string, items []StoredCartItem) error
}

// ProductRepository reads the catalog.
type ProductRepository interface {
	// FindByID returns domain.ErrProductNotFound for unknown ids.
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
	Upsert(ctx context.Context, p *domain.Product) error
}

// CartService is the server-side cart use case.
type CartService interface {
	Get(ctx context.Context, userID string) (*domain.ServerCart, error)
	Replace(ctx context.Context, userID string, items []StoredCartItem) (*domain.ServerCart, error)
	Product(ctx context.Context, id int64) (*domain.Product, error)
	SaveProduct(ctx context.Context, p *domain.Product) error
}

// KeyedQueue runs jobs sharing a key one at a time, in arrival order.
type KeyedQueue interface {
	Do(ctx context.Context, key string, job func(ctx context.Context) error) error
}
