package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NoSize is the SizeID of a line whose product has no variants.
const NoSize int64 = 0

// LineKey identifies a cart line. Two lines with the same key are the same line.
type LineKey struct {
	ProductID int64
	SizeID    int64 // NoSize when the product has no variants
}

func (k LineKey) String() string {
	if k.SizeID == NoSize {
		return fmt.Sprintf("%d", k.ProductID)
	}
	return fmt.Sprintf("%d/%d", k.ProductID, k.SizeID)
}

// SizeIDPtr returns the size id in its wire form: nil for products without variants.
func (k LineKey) SizeIDPtr() *int64 {
	if k.SizeID == NoSize {
		return nil
	}
	id := k.SizeID
	return &id
}

// KeyFor builds a LineKey from a wire-form size id.
func KeyFor(productID int64, sizeID *int64) LineKey {
	if sizeID == nil {
		return LineKey{ProductID: productID}
	}
	return LineKey{ProductID: productID, SizeID: *sizeID}
}

// LineMetadata is the display data captured when a line is first added.
// It is never re-fetched.
type LineMetadata struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Image    string `json:"image,omitempty"`
	SizeName string `json:"size_name,omitempty"`
}

// CartLine is one purchasable configuration in the cart.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	SizeID    int64           `json:"size_id,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineMetadata
}

// Key returns the composite identity of the line.
func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, SizeID: l.SizeID}
}

// Subtotal is UnitPrice × Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Valid reports whether the line can live in a cart.
func (l CartLine) Valid() bool {
	return l.ProductID > 0 && l.SizeID >= 0 && l.Quantity >= 1 && !l.UnitPrice.IsNegative()
}

// CartSnapshot is a point-in-time copy of the local cart plus its derived totals.
type CartSnapshot struct {
	Lines       []CartLine
	TotalItems  int
	TotalAmount decimal.Decimal
}

// NewCartSnapshot copies lines and computes totals from scratch.
func NewCartSnapshot(lines []CartLine) CartSnapshot {
	out := make([]CartLine, len(lines))
	copy(out, lines)
	items, amount := Totals(out)
	return CartSnapshot{Lines: out, TotalItems: items, TotalAmount: amount}
}

// IsEmpty reports whether the snapshot has no lines.
func (s CartSnapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Line returns the line with the given key, if present.
func (s CartSnapshot) Line(key LineKey) (CartLine, bool) {
	for _, l := range s.Lines {
		if l.Key() == key {
			return l, true
		}
	}
	return CartLine{}, false
}

// Totals sums quantities and price × quantity with decimal arithmetic.
// It is always recomputed over the full set of lines, never accumulated.
func Totals(lines []CartLine) (int, decimal.Decimal) {
	items := 0
	amount := decimal.Zero
	for _, l := range lines {
		items += l.Quantity
		amount = amount.Add(l.Subtotal())
	}
	return items, amount
}
