package store

import (
	"context"
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/efreitasn/holdingsledger/internal/domain"
)

// MemoryStore is a thread-safe in-memory Backend. Holdings are indexed by
// id and, through a B-tree, by case-folded instrument name. Orders are an
// append-only slice.
//
// Atomically holds the write lock for the whole callback; operations made
// with the callback's context skip locking and record an undo step.
type MemoryStore struct {
	mu        sync.RWMutex
	byName    *btree.BTreeG[*domain.Holding]
	byID      map[string]*domain.Holding
	orders    []*domain.Order
	positions []*domain.Position
}

// holdingLess orders holdings by case-folded instrument name.
func holdingLess(a, b *domain.Holding) bool {
	return domain.InstrumentKey(a.Instrument) < domain.InstrumentKey(b.Instrument)
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	const degree = 16
	return &MemoryStore{
		byName: btree.NewG[*domain.Holding](degree, holdingLess),
		byID:   make(map[string]*domain.Holding),
	}
}

var _ Backend = (*MemoryStore)(nil)

type memTxKey struct{}

// memTx collects undo steps for one Atomically call.
type memTx struct {
	store *MemoryStore
	undo  []func()
}

func (s *MemoryStore) tx(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	if tx == nil || tx.store != s {
		return nil
	}
	return tx
}

// rlock takes the read lock unless ctx belongs to a running transaction,
// which already holds the write lock.
func (s *MemoryStore) rlock(ctx context.Context) func() {
	if s.tx(ctx) != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *MemoryStore) lock(ctx context.Context) (*memTx, func()) {
	if tx := s.tx(ctx); tx != nil {
		return tx, func() {}
	}
	s.mu.Lock()
	return nil, s.mu.Unlock
}

// Atomically implements Transactor. Nested calls join the outer transaction.
func (s *MemoryStore) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx(ctx) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	err := fn(context.WithValue(ctx, memTxKey{}, tx))
	if err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
	}
	return err
}

// FindHoldingByID returns a copy of the holding with the given id.
func (s *MemoryStore) FindHoldingByID(ctx context.Context, id string) (*domain.Holding, error) {
	defer s.rlock(ctx)()

	h, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return h.Clone(), nil
}

// FindHoldingByName returns a copy of the holding whose instrument equals
// name, ignoring case.
func (s *MemoryStore) FindHoldingByName(ctx context.Context, name string) (*domain.Holding, error) {
	defer s.rlock(ctx)()

	h, ok := s.byName.Get(&domain.Holding{Instrument: name})
	if !ok {
		return nil, nil
	}
	return h.Clone(), nil
}

// InsertHolding stores a copy of h under a new id and returns the id.
func (s *MemoryStore) InsertHolding(ctx context.Context, h *domain.Holding) (string, error) {
	tx, unlock := s.lock(ctx)
	defer unlock()

	if _, exists := s.byName.Get(h); exists {
		return "", &domain.StorageError{Op: "insert holding", Err: ErrDuplicateInstrument}
	}

	stored := h.Clone()
	stored.ID = uuid.New().String()
	s.byName.ReplaceOrInsert(stored)
	s.byID[stored.ID] = stored

	if tx != nil {
		tx.undo = append(tx.undo, func() {
			s.byName.Delete(stored)
			delete(s.byID, stored.ID)
		})
	}
	return stored.ID, nil
}

// UpdateHolding replaces the quantity and average price of h.ID.
func (s *MemoryStore) UpdateHolding(ctx context.Context, h *domain.Holding) error {
	tx, unlock := s.lock(ctx)
	defer unlock()

	prev, ok := s.byID[h.ID]
	if !ok {
		return &domain.StorageError{Op: "update holding", Err: ErrNoRecord}
	}

	next := prev.Clone()
	next.Quantity = h.Quantity
	next.AveragePrice = h.AveragePrice
	s.byName.ReplaceOrInsert(next)
	s.byID[next.ID] = next

	if tx != nil {
		tx.undo = append(tx.undo, func() {
			s.byName.ReplaceOrInsert(prev)
			s.byID[prev.ID] = prev
		})
	}
	return nil
}

// DeleteHolding removes the holding with the given id.
func (s *MemoryStore) DeleteHolding(ctx context.Context, id string) error {
	tx, unlock := s.lock(ctx)
	defer unlock()

	prev, ok := s.byID[id]
	if !ok {
		return &domain.StorageError{Op: "delete holding", Err: ErrNoRecord}
	}
	s.byName.Delete(prev)
	delete(s.byID, id)

	if tx != nil {
		tx.undo = append(tx.undo, func() {
			s.byName.ReplaceOrInsert(prev)
			s.byID[prev.ID] = prev
		})
	}
	return nil
}

// InsertOrder appends a copy of o to the order log and returns its id.
func (s *MemoryStore) InsertOrder(ctx context.Context, o *domain.Order) (string, error) {
	tx, unlock := s.lock(ctx)
	defer unlock()

	stored := *o
	stored.ID = uuid.New().String()
	s.orders = append(s.orders, &stored)

	if tx != nil {
		n := len(s.orders) - 1
		tx.undo = append(tx.undo, func() {
			s.orders = s.orders[:n]
		})
	}
	return stored.ID, nil
}

// ListHoldings returns copies of all holdings ordered by instrument name.
func (s *MemoryStore) ListHoldings(ctx context.Context) ([]*domain.Holding, error) {
	defer s.rlock(ctx)()

	result := make([]*domain.Holding, 0, s.byName.Len())
	s.byName.Ascend(func(h *domain.Holding) bool {
		result = append(result, h.Clone())
		return true
	})
	return result, nil
}

// ListOrders returns copies of all orders in insertion order.
func (s *MemoryStore) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	defer s.rlock(ctx)()

	result := make([]*domain.Order, len(s.orders))
	for i, o := range s.orders {
		c := *o
		result[i] = &c
	}
	return result, nil
}

// ListPositions returns copies of the seeded positions.
func (s *MemoryStore) ListPositions(ctx context.Context) ([]*domain.Position, error) {
	defer s.rlock(ctx)()

	result := make([]*domain.Position, len(s.positions))
	for i, p := range s.positions {
		c := *p
		result[i] = &c
	}
	return result, nil
}

// SeedPositions replaces the position rows. Positions come from an
// external feed; the service never writes them itself.
func (s *MemoryStore) SeedPositions(positions []*domain.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions = make([]*domain.Position, len(positions))
	for i, p := range positions {
		c := *p
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		s.positions[i] = &c
	}
}

// IsID reports whether id is a canonical UUID string.
func (s *MemoryStore) IsID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
