package cartapi

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/cartsync/internal/core/domain"
)

type pushItem struct {
	ProductID int64  `json:"product_id"`
	SizeID    *int64 `json:"size_id"`
	Quantity  int    `json:"quantity"`
}

type pushRequest struct {
	Items []pushItem `json:"items"`
}

// cartItem is one line of GET /users/me/cart. price accepts a JSON number
// or string; image and size name may be null.
type cartItem struct {
	ProductID    int64           `json:"product_id"`
	SizeID       *int64          `json:"size_id"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	ProductName  string          `json:"product_name"`
	ProductSlug  string          `json:"product_slug"`
	ProductImage *string         `json:"product_image"`
	SizeName     *string         `json:"size_name"`
}

type cartResponse struct {
	Items       []cartItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalItems  int             `json:"total_items"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toPushRequest(lines []domain.CartLine) pushRequest {
	items := make([]pushItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, pushItem{
			ProductID: l.ProductID,
			SizeID:    l.Key().SizeIDPtr(),
			Quantity:  l.Quantity,
		})
	}
	return pushRequest{Items: items}
}

// toServerCart converts the response, dropping lines the client could not
// hold. Totals come from the server as reported.
func (r cartResponse) toServerCart() *domain.ServerCart {
	lines := make([]domain.CartLine, 0, len(r.Items))
	for _, it := range r.Items {
		key := domain.KeyFor(it.ProductID, it.SizeID)
		l := domain.CartLine{
			ProductID: key.ProductID,
			SizeID:    key.SizeID,
			UnitPrice: it.Price,
			Quantity:  it.Quantity,
			LineMetadata: domain.LineMetadata{
				Name:     it.ProductName,
				Slug:     it.ProductSlug,
				Image:    deref(it.ProductImage),
				SizeName: deref(it.SizeName),
			},
		}
		if l.Valid() {
			lines = append(lines, l)
		}
	}
	return &domain.ServerCart{
		Lines:       lines,
		TotalAmount: r.TotalAmount,
		TotalItems:  r.TotalItems,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
