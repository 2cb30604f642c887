package engine

import (
	"context"

	"github.com/efreitasn/holdingsledger/internal/domain"
)

// HoldingFinder is the lookup subset of store.Repository.
type HoldingFinder interface {
	FindHoldingByID(ctx context.Context, id string) (*domain.Holding, error)
	FindHoldingByName(ctx context.Context, name string) (*domain.Holding, error)
}

// Resolver maps a sell target, either a record id or an instrument name,
// to exactly one holding.
type Resolver struct {
	finder      HoldingFinder
	looksLikeID domain.IDPredicate
}

// NewResolver creates a Resolver. looksLikeID decides which identifiers are
// worth a point lookup before the name lookup.
func NewResolver(finder HoldingFinder, looksLikeID domain.IDPredicate) *Resolver {
	return &Resolver{
		finder:      finder,
		looksLikeID: looksLikeID,
	}
}

// Resolve tries an id lookup when identifier looks like an id, then falls
// back to a case-insensitive exact name match with the same string. It
// returns domain.ErrHoldingNotFound when neither matches.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*domain.Holding, error) {
	if identifier == "" {
		return nil, domain.ErrHoldingNotFound
	}

	if r.looksLikeID != nil && r.looksLikeID(identifier) {
		h, err := r.finder.FindHoldingByID(ctx, identifier)
		if err != nil {
			return nil, err
		}
		if h != nil {
			return h, nil
		}
	}

	h, err := r.finder.FindHoldingByName(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, domain.ErrHoldingNotFound
	}
	return h, nil
}
