package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
)

// CartService prices stored carts from the catalog and validates overwrites.
type CartService struct {
	carts    ports.CartRepository
	products ports.ProductRepository
	logger   zerolog.Logger
}

func NewCartService(carts ports.CartRepository, products ports.ProductRepository, logger zerolog.Logger) *CartService {
	return &CartService{carts: carts, products: products, logger: logger}
}

// Get returns the user's cart priced at current catalog prices.
// domain.ErrCartNotFound is returned when the user never pushed a cart.
func (s *CartService) Get(ctx context.Context, userID string) (*domain.ServerCart, error) {
	items, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	products, err := s.products.FindByIDs(ctx, productIDs(items))
	if err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(items))
	for _, it := range items {
		line, err := priceLine(products, it)
		if err != nil {
			// Products can leave the catalog after the cart was stored.
			s.logger.Warn().
				Str("user_id", userID).
				Int64("product_id", it.ProductID).
				Int64("size_id", it.SizeID).
				Msg("dropping cart line with unknown product")
			continue
		}
		lines = append(lines, line)
	}
	return serverCart(lines), nil
}

// Replace validates items, merges duplicate keys by summing quantities and
// overwrites the stored cart. Every product must exist in the catalog.
func (s *CartService) Replace(ctx context.Context, userID string, items []ports.StoredCartItem) (*domain.ServerCart, error) {
	merged := make([]ports.StoredCartItem, 0, len(items))
	index := make(map[domain.LineKey]int, len(items))
	for _, it := range items {
		if it.ProductID <= 0 || it.SizeID < 0 || it.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %d size %d quantity %d", domain.ErrInvalidCartItem, it.ProductID, it.SizeID, it.Quantity)
		}
		key := domain.LineKey{ProductID: it.ProductID, SizeID: it.SizeID}
		if i, ok := index[key]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, it)
	}

	products, err := s.products.FindByIDs(ctx, productIDs(merged))
	if err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, 0, len(merged))
	for _, it := range merged {
		line, err := priceLine(products, it)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	if err := s.carts.Replace(ctx, userID, merged); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Int("lines", len(merged)).Msg("cart replaced")
	return serverCart(lines), nil
}

func (s *CartService) Product(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// SaveProduct validates and upserts a catalog entry.
func (s *CartService) SaveProduct(ctx context.Context, p *domain.Product) error {
	if p.ID <= 0 || p.Name == "" || p.Price.IsNegative() {
		return fmt.Errorf("%w: product %d", domain.ErrInvalidProduct, p.ID)
	}
	seen := make(map[int64]struct{}, len(p.Sizes))
	for _, sz := range p.Sizes {
		if _, dup := seen[sz.ID]; dup || sz.ID <= 0 || sz.Price.IsNegative() {
			return fmt.Errorf("%w: product %d size %d", domain.ErrInvalidProduct, p.ID, sz.ID)
		}
		seen[sz.ID] = struct{}{}
	}
	return s.products.Upsert(ctx, p)
}

func priceLine(products map[int64]*domain.Product, it ports.StoredCartItem) (domain.CartLine, error) {
	p, ok := products[it.ProductID]
	if !ok {
		return domain.CartLine{}, fmt.Errorf("%w: %d", domain.ErrProductNotFound, it.ProductID)
	}
	price, sizeName, ok := p.PriceFor(it.SizeID)
	if !ok {
		return domain.CartLine{}, fmt.Errorf("%w: %d has no size %d", domain.ErrProductNotFound, it.ProductID, it.SizeID)
	}
	return domain.CartLine{
		ProductID: it.ProductID,
		SizeID:    it.SizeID,
		UnitPrice: price,
		Quantity:  it.Quantity,
		LineMetadata: domain.LineMetadata{
			Name:     p.Name,
			Slug:     p.Slug,
			Image:    p.Image,
			SizeName: sizeName,
		},
	}, nil
}

func productIDs(items []ports.StoredCartItem) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

func serverCart(lines []domain.CartLine) *domain.ServerCart {
	items, amount := domain.Totals(lines)
	return &domain.ServerCart{Lines: lines, TotalItems: items, TotalAmount: amount}
}
