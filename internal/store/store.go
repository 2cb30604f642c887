// Package store defines the persistence contract the execution engine
// depends on, plus an in-memory implementation.
package store

import (
	"context"
	"errors"

	"github.com/efreitasn/holdingsledger/internal/domain"
)

var (
	// ErrNoRecord is wrapped in a StorageError when an update or delete
	// targets a record that does not exist.
	ErrNoRecord = errors.New("record does not exist")
	// ErrDuplicateInstrument is wrapped in a StorageError when a second
	// holding is inserted for an instrument that already has one.
	ErrDuplicateInstrument = errors.New("holding for instrument already exists")
)

// Repository is the storage surface used by order execution. All methods
// are atomic at the single-record level. Lookups return (nil, nil) when no
// record matches. Failures are reported as *domain.StorageError.
type Repository interface {
	FindHoldingByID(ctx context.Context, id string) (*domain.Holding, error)
	// FindHoldingByName matches the whole name, ignoring case.
	FindHoldingByName(ctx context.Context, name string) (*domain.Holding, error)
	InsertHolding(ctx context.Context, h *domain.Holding) (string, error)
	// UpdateHolding replaces the quantity and average price of h.ID.
	UpdateHolding(ctx context.Context, h *domain.Holding) error
	DeleteHolding(ctx context.Context, id string) error
	InsertOrder(ctx context.Context, o *domain.Order) (string, error)

	ListHoldings(ctx context.Context) ([]*domain.Holding, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	ListPositions(ctx context.Context) ([]*domain.Position, error)

	// IsID reports whether s is shaped like one of this backend's record ids.
	IsID(s string) bool
}

// Transactor runs fn so that either every write it makes through the
// Repository is applied, or none is. Implementations that cannot offer this
// document so and run fn directly.
type Transactor interface {
	Atomically(ctx context.Context, fn func(ctx context.Context) error) error
}

// Backend is a Repository that can also group writes.
type Backend interface {
	Repository
	Transactor
}
