// Package reconcile decides, once per login, how the local cart relates to
// the cart the server holds for the account. Conflicts are never merged: they
// are handed to a Prompter and the user picks one side.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/cartsync/internal/core/domain"
)

// DefaultTolerance is the largest total difference still treated as the same
// cart.
var DefaultTolerance = decimal.NewFromInt(1)

// Outcome is the result of comparing the two carts.
type Outcome int

const (
	// OutcomeNoConflict: nothing to do (both empty, or totals agree).
	OutcomeNoConflict Outcome = iota
	// OutcomePushLocal: the server has nothing, upload the local cart.
	OutcomePushLocal
	// OutcomeAdoptServer: the local cart is empty, take the server's lines.
	OutcomeAdoptServer
	// OutcomeConflict: both carts have lines and their totals diverge.
	OutcomeConflict
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoConflict:
		return "no_conflict"
	case OutcomePushLocal:
		return "push_local"
	case OutcomeAdoptServer:
		return "adopt_server"
	case OutcomeConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Choice is the user's answer to a conflict.
type Choice int

const (
	// ChoiceAdoptServer restores the previously saved cart, discarding local lines.
	ChoiceAdoptServer Choice = iota + 1
	// ChoiceKeepLocal keeps the current cart and overwrites the saved one.
	ChoiceKeepLocal
)

func (c Choice) String() string {
	switch c {
	case ChoiceAdoptServer:
		return "restore"
	case ChoiceKeepLocal:
		return "keep"
	default:
		return "none"
	}
}

// Decide compares the local and server carts. A nil server cart is empty.
// Totals within tolerance (inclusive) mean the carts are considered the same.
func Decide(local domain.CartSnapshot, server *domain.ServerCart, tolerance decimal.Decimal) Outcome {
	switch {
	case local.IsEmpty() && server.IsEmpty():
		return OutcomeNoConflict
	case server.IsEmpty():
		return OutcomePushLocal
	case local.IsEmpty():
		return OutcomeAdoptServer
	}

	if local.TotalAmount.Sub(server.TotalAmount).Abs().LessThanOrEqual(tolerance) {
		return OutcomeNoConflict
	}
	return OutcomeConflict
}
