package engine

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/holdingsledger/internal/domain"
)

// avgTolerance absorbs the float64 round trip of backends that store
// amounts as doubles.
var avgTolerance = decimal.New(1, -6)

// Project replays orders, oldest first, into the holdings they imply,
// keyed by domain.InstrumentKey. Sells are applied without an availability
// check so that an inconsistent log surfaces as a negative quantity rather
// than being hidden.
func Project(orders []*domain.Order) map[string]*domain.Holding {
	out := make(map[string]*domain.Holding)
	for _, o := range orders {
		key := domain.InstrumentKey(o.Instrument)
		h, ok := out[key]

		switch o.Side {
		case domain.SideBuy:
			if !ok {
				out[key] = domain.NewHolding(o.Instrument, o.Quantity, o.Price)
				continue
			}
			h.ApplyBuy(o.Quantity, o.Price)
		case domain.SideSell:
			if !ok {
				h = domain.NewHolding(o.Instrument, decimal.Zero, decimal.Zero)
				out[key] = h
			}
			h.Quantity = h.Quantity.Sub(o.Quantity)
		}

		if h != nil && h.Quantity.IsZero() {
			delete(out, key)
		}
	}
	return out
}

// Drift is one instrument whose live holding disagrees with the order log.
type Drift struct {
	Instrument            string
	LedgerQuantity        decimal.Decimal
	ProjectedQuantity     decimal.Decimal
	LedgerAveragePrice    decimal.Decimal
	ProjectedAveragePrice decimal.Decimal
}

// Report is the result of Reconcile.
type Report struct {
	CheckedAt  time.Time
	Orders     int
	Holdings   int
	Consistent bool
	Drift      []Drift
}

// Reconcile compares the live holdings with the projection of the order log.
func (e *Engine) Reconcile(ctx context.Context) (*Report, error) {
	var (
		orders   []*domain.Order
		holdings []*domain.Holding
	)
	err := e.tx.Atomically(ctx, func(ctx context.Context) error {
		var err error
		if orders, err = e.repo.ListOrders(ctx); err != nil {
			return err
		}
		holdings, err = e.repo.ListHoldings(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	projected := Project(orders)
	report := &Report{
		CheckedAt: e.now(),
		Orders:    len(orders),
		Holdings:  len(holdings),
		Drift:     []Drift{},
	}

	for _, h := range holdings {
		key := domain.InstrumentKey(h.Instrument)
		p, ok := projected[key]
		delete(projected, key)
		if !ok {
			report.Drift = append(report.Drift, Drift{
				Instrument:         h.Instrument,
				LedgerQuantity:     h.Quantity,
				LedgerAveragePrice: h.AveragePrice,
			})
			continue
		}
		if !h.Quantity.Equal(p.Quantity) || !approxEqual(h.AveragePrice, p.AveragePrice) {
			report.Drift = append(report.Drift, Drift{
				Instrument:            h.Instrument,
				LedgerQuantity:        h.Quantity,
				ProjectedQuantity:     p.Quantity,
				LedgerAveragePrice:    h.AveragePrice,
				ProjectedAveragePrice: p.AveragePrice,
			})
		}
	}
	for _, p := range projected {
		report.Drift = append(report.Drift, Drift{
			Instrument:            p.Instrument,
			ProjectedQuantity:     p.Quantity,
			ProjectedAveragePrice: p.AveragePrice,
		})
	}

	sort.Slice(report.Drift, func(i, j int) bool {
		return domain.InstrumentKey(report.Drift[i].Instrument) < domain.InstrumentKey(report.Drift[j].Instrument)
	})
	report.Consistent = len(report.Drift) == 0
	return report, nil
}

func approxEqual(a, b decimal.Decimal) bool {
	scale := decimal.Max(decimal.NewFromInt(1), b.Abs())
	return a.Sub(b).Abs().LessThanOrEqual(avgTolerance.Mul(scale))
}
