package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/efreitasn/holdingsledger/internal/service"
)

// PositionHandler handles HTTP requests for positions.
type PositionHandler struct {
	positionSvc *service.PositionService
	logger      *zap.Logger
}

// NewPositionHandler creates a new PositionHandler.
func NewPositionHandler(positionSvc *service.PositionService, logger *zap.Logger) *PositionHandler {
	return &PositionHandler{positionSvc: positionSvc, logger: logger}
}

type positionResponse struct {
	ID      string      `json:"_id"`
	Product string      `json:"product"`
	Name    string      `json:"name"`
	Qty     json.Number `json:"qty"`
	Avg     json.Number `json:"avg"`
	Price   json.Number `json:"price"`
	Net     string      `json:"net"`
	Day     string      `json:"day"`
	IsLoss  bool        `json:"isLoss"`
}

// List handles GET /allPositions.
func (h *PositionHandler) List(w http.ResponseWriter, r *http.Request) {
	positions, err := h.positionSvc.List(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, "list positions", err)
		return
	}

	resp := make([]positionResponse, 0, len(positions))
	for _, p := range positions {
		resp = append(resp, positionResponse{
			ID:      p.ID,
			Product: p.Product,
			Name:    p.Instrument,
			Qty:     number(p.Quantity),
			Avg:     number(p.AveragePrice),
			Price:   number(p.LastPrice),
			Net:     p.Net,
			Day:     p.Day,
			IsLoss:  p.IsLoss,
		})
	}
	WriteJSON(w, http.StatusOK, resp)
}
