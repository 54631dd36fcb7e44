package service

import (
	"context"

	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
)

// OrderedCartService applies each user's cart overwrites one at a time, so
// pushes racing in from several devices land in the order they arrived.
// Reads are not queued.
type OrderedCartService struct {
	ports.CartService
	queue ports.KeyedQueue
}

func NewOrderedCartService(carts ports.CartService, queue ports.KeyedQueue) *OrderedCartService {
	return &OrderedCartService{CartService: carts, queue: queue}
}

func (s *OrderedCartService) Replace(ctx context.Context, userID string, items []ports.StoredCartItem) (*domain.ServerCart, error) {
	var out *domain.ServerCart
	err := s.queue.Do(ctx, userID, func(ctx context.Context) error {
		cart, err := s.CartService.Replace(ctx, userID, items)
		out = cart
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
