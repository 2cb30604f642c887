package domain

import (
	"github.com/shopspring/decimal"
)

// Holding is the live position in one instrument. A stored holding always
// has a positive Quantity; a holding that reaches zero is deleted.
type Holding struct {
	ID           string
	Instrument   string // canonical name, as first bought
	Quantity     decimal.Decimal
	AveragePrice decimal.Decimal // quantity-weighted cost basis, changed only by buys
}

// NewHolding opens a holding from a first purchase.
func NewHolding(instrument string, qty, price decimal.Decimal) *Holding {
	return &Holding{
		Instrument:   instrument,
		Quantity:     qty,
		AveragePrice: price,
	}
}

// ApplyBuy adds qty units bought at price, merging the cost basis.
func (h *Holding) ApplyBuy(qty, price decimal.Decimal) {
	avg, ok := WeightedAverage(h.Quantity, h.AveragePrice, qty, price)
	h.Quantity = h.Quantity.Add(qty)
	if ok {
		h.AveragePrice = avg
	}
}

// ApplySell removes qty units. The average price is left untouched. It
// returns an *InsufficientQuantityError, without mutating, when the holding
// carries less than qty. Exhausted reports whether the holding reached zero.
func (h *Holding) ApplySell(qty decimal.Decimal) (exhausted bool, err error) {
	if h.Quantity.LessThan(qty) {
		return false, &InsufficientQuantityError{Available: h.Quantity}
	}
	h.Quantity = h.Quantity.Sub(qty)
	return h.Quantity.IsZero(), nil
}

// Clone returns a copy safe to hand to another goroutine.
func (h *Holding) Clone() *Holding {
	c := *h
	return &c
}
