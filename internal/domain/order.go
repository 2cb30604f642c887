package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side indicates whether an order bought or sold.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	}
	return "", false
}

// Order is an executed buy or sell. Orders are append-only: once stored
// they are never updated or deleted.
type Order struct {
	ID         string
	Instrument string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Side       Side
	CreatedAt  time.Time
}

// SignedQuantity returns Quantity for buys and -Quantity for sells.
func (o *Order) SignedQuantity() decimal.Decimal {
	if o.Side == SideSell {
		return o.Quantity.Neg()
	}
	return o.Quantity
}
