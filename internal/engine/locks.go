package engine

import (
	"sync"

	"github.com/efreitasn/holdingsledger/internal/domain"
)

// Locks hands out one mutex per instrument, keyed by domain.InstrumentKey,
// so every read-modify-write of a holding is serialized with every other
// one for the same instrument. Entries are dropped once no goroutine holds
// or waits on them.
type Locks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{
		entries: make(map[string]*lockEntry),
	}
}

// Lock blocks until the instrument's mutex is held and returns the function
// that releases it.
func (l *Locks) Lock(instrument string) (unlock func()) {
	key := domain.InstrumentKey(instrument)

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of instruments currently locked or awaited.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
