package service

import (
	"context"

	"github.com/efreitasn/holdingsledger/internal/cache"
	"github.com/efreitasn/holdingsledger/internal/domain"
	"github.com/efreitasn/holdingsledger/internal/store"
)

const positionsKey = "positions:all"

// PositionService serves the positions collection through a TTL cache.
// Order execution never writes positions, so entries only expire.
type PositionService struct {
	repo  store.Repository
	cache *cache.Cache
}

// NewPositionService creates a PositionService. A nil cache disables caching.
func NewPositionService(repo store.Repository, c *cache.Cache) *PositionService {
	return &PositionService{repo: repo, cache: c}
}

func (s *PositionService) List(ctx context.Context) ([]*domain.Position, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(positionsKey); ok {
			if rows, ok := v.([]*domain.Position); ok {
				return rows, nil
			}
		}
	}

	rows, err := s.repo.ListPositions(ctx)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*domain.Position{}
	}
	if s.cache != nil {
		s.cache.Set(positionsKey, rows)
	}
	return rows, nil
}
