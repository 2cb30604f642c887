// Package engine applies buy and sell orders to the holdings ledger.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/holdingsledger/internal/domain"
	"github.com/efreitasn/holdingsledger/internal/store"
)

// maxResolveAttempts bounds how often a sell re-resolves its target when the
// holding it resolved to changed instrument between lookup and lock.
const maxResolveAttempts = 3

var errTargetMoved = errors.New("sell target changed while acquiring lock")

// BuyIntent is a validated buy.
type BuyIntent struct {
	Instrument string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
}

// SellIntent is a validated sell. Identifier is a record id or a name.
type SellIntent struct {
	Identifier string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
}

// Execution is the outcome of an accepted order.
type Execution struct {
	Order   *domain.Order
	Holding *domain.Holding // state after the order; nil when the holding was closed
}

// Engine executes orders against a store.Backend.
//
// Mutations of one instrument are serialized through Locks, and both writes
// of a transition (order record and holding) run inside one
// Transactor.Atomically call.
type Engine struct {
	repo     store.Repository
	tx       store.Transactor
	locks    *Locks
	resolver *Resolver
	now      func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the order timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDPredicate overrides the backend's notion of what a record id
// looks like when resolving sell targets.
func WithIDPredicate(p domain.IDPredicate) Option {
	return func(e *Engine) { e.resolver = NewResolver(e.repo, p) }
}

// New creates an Engine. The caller keeps ownership of backend.
func New(backend store.Backend, opts ...Option) *Engine {
	e := &Engine{
		repo:     backend,
		tx:       backend,
		locks:    NewLocks(),
		resolver: NewResolver(backend, backend.IsID),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Buy records a buy order and merges it into the instrument's holding,
// opening the holding if none exists.
func (e *Engine) Buy(ctx context.Context, in BuyIntent) (*Execution, error) {
	unlock := e.locks.Lock(in.Instrument)
	defer unlock()

	var exec Execution
	err := e.tx.Atomically(ctx, func(ctx context.Context) error {
		order := &domain.Order{
			Instrument: in.Instrument,
			Quantity:   in.Quantity,
			Price:      in.Price,
			Side:       domain.SideBuy,
			CreatedAt:  e.now(),
		}
		id, err := e.repo.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id

		h, err := e.repo.FindHoldingByName(ctx, in.Instrument)
		if err != nil {
			return err
		}
		if h != nil {
			h.ApplyBuy(in.Quantity, in.Price)
			if err := e.repo.UpdateHolding(ctx, h); err != nil {
				return err
			}
		} else {
			h = domain.NewHolding(in.Instrument, in.Quantity, in.Price)
			id, err := e.repo.InsertHolding(ctx, h)
			if err != nil {
				return err
			}
			h.ID = id
		}

		exec = Execution{Order: order, Holding: h}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

// Sell reduces the resolved holding by the sold quantity, closing it when
// it reaches zero, and records the sell under the holding's canonical name.
// It fails with domain.ErrHoldingNotFound or an
// *domain.InsufficientQuantityError without writing anything.
func (e *Engine) Sell(ctx context.Context, in SellIntent) (*Execution, error) {
	for attempt := 1; ; attempt++ {
		target, err := e.resolver.Resolve(ctx, in.Identifier)
		if err != nil {
			return nil, err
		}

		exec, err := e.sellLocked(ctx, domain.InstrumentKey(target.Instrument), in)
		if errors.Is(err, errTargetMoved) {
			if attempt < maxResolveAttempts {
				continue
			}
			return nil, domain.ErrHoldingNotFound
		}
		return exec, err
	}
}

func (e *Engine) sellLocked(ctx context.Context, key string, in SellIntent) (*Execution, error) {
	unlock := e.locks.Lock(key)
	defer unlock()

	var exec Execution
	err := e.tx.Atomically(ctx, func(ctx context.Context) error {
		// Re-resolve under the lock; the holding may have changed or been
		// closed since the unlocked lookup.
		h, err := e.resolver.Resolve(ctx, in.Identifier)
		if err != nil {
			return err
		}
		if domain.InstrumentKey(h.Instrument) != key {
			return errTargetMoved
		}

		exhausted, err := h.ApplySell(in.Quantity)
		if err != nil {
			return err
		}
		if exhausted {
			if err := e.repo.DeleteHolding(ctx, h.ID); err != nil {
				return err
			}
		} else {
			if err := e.repo.UpdateHolding(ctx, h); err != nil {
				return err
			}
		}

		order := &domain.Order{
			Instrument: h.Instrument,
			Quantity:   in.Quantity,
			Price:      in.Price,
			Side:       domain.SideSell,
			CreatedAt:  e.now(),
		}
		id, err := e.repo.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id

		exec = Execution{Order: order}
		if !exhausted {
			exec.Holding = h
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &exec, nil
}
