package service

import (
	"context"

	"github.com/efreitasn/holdingsledger/internal/domain"
	"github.com/efreitasn/holdingsledger/internal/store"
)

// HoldingService serves read access to the live holdings.
type HoldingService struct {
	repo store.Repository
}

func NewHoldingService(repo store.Repository) *HoldingService {
	return &HoldingService{repo: repo}
}

// List returns every holding ordered by instrument name.
func (s *HoldingService) List(ctx context.Context) ([]*domain.Holding, error) {
	return s.repo.ListHoldings(ctx)
}
