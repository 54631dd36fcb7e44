package reconcile

import (
	"github.com/storefront/cartsync/internal/core/domain"
)

// QuantityChange is a line present on both sides with different quantities.
type QuantityChange struct {
	Line      domain.CartLine // local version
	LocalQty  int
	ServerQty int
}

// LineDiff describes what separates two carts, for display only. It is never
// applied: conflicts are resolved by picking one side whole.
type LineDiff struct {
	OnlyLocal  []domain.CartLine
	OnlyServer []domain.CartLine
	Changed    []QuantityChange
}

// IsEmpty reports whether both carts hold the same lines and quantities.
func (d LineDiff) IsEmpty() bool {
	return len(d.OnlyLocal) == 0 && len(d.OnlyServer) == 0 && len(d.Changed) == 0
}

// DiffLines matches lines by composite key. Output follows the order of the
// input slices.
func DiffLines(local, server []domain.CartLine) LineDiff {
	serverByKey := make(map[domain.LineKey]domain.CartLine, len(server))
	for _, l := range server {
		serverByKey[l.Key()] = l
	}

	var d LineDiff
	seen := make(map[domain.LineKey]struct{}, len(local))
	for _, l := range local {
		seen[l.Key()] = struct{}{}
		s, ok := serverByKey[l.Key()]
		switch {
		case !ok:
			d.OnlyLocal = append(d.OnlyLocal, l)
		case s.Quantity != l.Quantity:
			d.Changed = append(d.Changed, QuantityChange{Line: l, LocalQty: l.Quantity, ServerQty: s.Quantity})
		}
	}
	for _, s := range server {
		if _, ok := seen[s.Key()]; !ok {
			d.OnlyServer = append(d.OnlyServer, s)
		}
	}
	return d
}
