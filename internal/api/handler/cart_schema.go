package handler

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
)

type cartItemRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	SizeID    *int64 `json:"size_id" validate:"omitempty,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// replaceCartRequest is a full overwrite. An empty list empties the cart.
type replaceCartRequest struct {
	Items []cartItemRequest `json:"items" validate:"dive"`
}

func (r replaceCartRequest) toStored() []ports.StoredCartItem {
	out := make([]ports.StoredCartItem, 0, len(r.Items))
	for _, it := range r.Items {
		key := domain.KeyFor(it.ProductID, it.SizeID)
		out = append(out, ports.StoredCartItem{ProductID: key.ProductID, SizeID: key.SizeID, Quantity: it.Quantity})
	}
	return out
}

type cartItemResponse struct {
	ProductID    int64           `json:"product_id"`
	SizeID       *int64          `json:"size_id"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ProductName  string          `json:"product_name"`
	ProductSlug  string          `json:"product_slug"`
	ProductImage *string         `json:"product_image"`
	SizeName     *string         `json:"size_name"`
}

type cartResponse struct {
	Items       []cartItemResponse `json:"items"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	TotalItems  int                `json:"total_items"`
}

func toCartResponse(cart *domain.ServerCart) cartResponse {
	resp := cartResponse{
		Items:       make([]cartItemResponse, 0, len(cart.Lines)),
		TotalAmount: cart.TotalAmount.Round(2),
		TotalItems:  cart.TotalItems,
	}
	for _, l := range cart.Lines {
		resp.Items = append(resp.Items, cartItemResponse{
			ProductID:    l.ProductID,
			SizeID:       l.Key().SizeIDPtr(),
			Quantity:     l.Quantity,
			Price:        l.UnitPrice,
			Subtotal:     l.Subtotal(),
			ProductName:  l.Name,
			ProductSlug:  l.Slug,
			ProductImage: nullable(l.Image),
			SizeName:     nullable(l.SizeName),
		})
	}
	return resp
}

// nullable renders an empty string as JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type sizeRequest struct {
	ID    int64           `json:"id" validate:"required,gt=0"`
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

type productRequest struct {
	Name  string          `json:"name" validate:"required"`
	Slug  string          `json:"slug" validate:"required"`
	Image string          `json:"image"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
	Sizes []sizeRequest   `json:"sizes" validate:"dive"`
}

func (r productRequest) toDomain(id int64) *domain.Product {
	p := &domain.Product{ID: id, Name: r.Name, Slug: r.Slug, Image: r.Image, Price: r.Price}
	for _, s := range r.Sizes {
		p.Sizes = append(p.Sizes, domain.Size{ID: s.ID, Name: s.Name, Price: s.Price})
	}
	return p
}
