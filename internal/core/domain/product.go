package domain

import "github.com/shopspring/decimal"

// Size is a purchasable variant of a product with its own price.
type Size struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Product is a catalog entry as priced by the server.
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Slug  string          `json:"slug"`
	Image string          `json:"image,omitempty"`
	Price decimal.Decimal `json:"price"`
	Sizes []Size          `json:"sizes,omitempty"`
}

// PriceFor returns the unit price of the product in the given size and the
// size's display name. NoSize selects the base price. ok is false when the
// size does not belong to the product, or when the product has sizes and none
// was chosen.
func (p *Product) PriceFor(sizeID int64) (price decimal.Decimal, sizeName string, ok bool) {
	if sizeID == NoSize {
		if len(p.Sizes) > 0 {
			return decimal.Zero, "", false
		}
		return p.Price, "", true
	}
	for _, s := range p.Sizes {
		if s.ID == sizeID {
			return s.Price, s.Name, true
		}
	}
	return decimal.Zero, "", false
}
