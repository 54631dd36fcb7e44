package domain

import "github.com/shopspring/decimal"

// ServerCart is the account's cart as held by the remote API. It is fetched
// for a single reconciliation pass and never cached.
type ServerCart struct {
	Lines       []CartLine
	TotalAmount decimal.Decimal
	TotalItems  int
}

// EmptyServerCart is what a missing or unreachable server cart looks like.
func EmptyServerCart() *ServerCart {
	return &ServerCart{TotalAmount: decimal.Zero}
}

// IsEmpty reports whether the server holds no lines.
func (c *ServerCart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}
