package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/efreitasn/holdingsledger/internal/domain"
	"github.com/efreitasn/holdingsledger/internal/service"
)

// HoldingHandler handles HTTP requests for holdings.
type HoldingHandler struct {
	holdingSvc *service.HoldingService
	logger     *zap.Logger
}

// NewHoldingHandler creates a new HoldingHandler.
func NewHoldingHandler(holdingSvc *service.HoldingService, logger *zap.Logger) *HoldingHandler {
	return &HoldingHandler{holdingSvc: holdingSvc, logger: logger}
}

// holdingResponse is one holding. Price is the average cost.
type holdingResponse struct {
	ID    string      `json:"_id"`
	Name  string      `json:"name"`
	Qty   json.Number `json:"qty"`
	Price json.Number `json:"price"`
}

func buildHoldingResponse(h *domain.Holding) *holdingResponse {
	if h == nil {
		return nil
	}
	return &holdingResponse{
		ID:    h.ID,
		Name:  h.Instrument,
		Qty:   number(h.Quantity),
		Price: number(h.AveragePrice),
	}
}

// List handles GET /allHoldings.
func (h *HoldingHandler) List(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.holdingSvc.List(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, "list holdings", err)
		return
	}

	resp := make([]*holdingResponse, 0, len(holdings))
	for _, hd := range holdings {
		resp = append(resp, buildHoldingResponse(hd))
	}
	WriteJSON(w, http.StatusOK, resp)
}
