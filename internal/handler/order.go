package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/efreitasn/holdingsledger/internal/domain"
	"github.com/efreitasn/holdingsledger/internal/engine"
	"github.com/efreitasn/holdingsledger/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
	logger   *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, logger: logger}
}

// orderRequest is the JSON body for POST /newOrder and POST /sellStock.
type orderRequest struct {
	Name     string `json:"name"`
	NameOrID string `json:"nameOrId"`
	Qty      any    `json:"qty"`
	Price    any    `json:"price"`
	Mode     string `json:"mode"`
}

type orderResponse struct {
	ID        string      `json:"_id"`
	Name      string      `json:"name"`
	Qty       json.Number `json:"qty"`
	Price     json.Number `json:"price"`
	Mode      string      `json:"mode"`
	CreatedAt string      `json:"createdAt"`
}

// executionResponse is returned for an accepted order. Holding is null
// when the order closed it.
type executionResponse struct {
	Message string           `json:"message"`
	Order   orderResponse    `json:"order"`
	Holding *holdingResponse `json:"holding"`
}

type driftResponse struct {
	Name           string      `json:"name"`
	LedgerQty      json.Number `json:"ledgerQty"`
	ProjectedQty   json.Number `json:"projectedQty"`
	LedgerPrice    json.Number `json:"ledgerPrice"`
	ProjectedPrice json.Number `json:"projectedPrice"`
}

type reconcileResponse struct {
	CheckedAt  string          `json:"checkedAt"`
	Orders     int             `json:"orders"`
	Holdings   int             `json:"holdings"`
	Consistent bool            `json:"consistent"`
	Drift      []driftResponse `json:"drift"`
}

func buildOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		Name:      o.Instrument,
		Qty:       number(o.Quantity),
		Price:     number(o.Price),
		Mode:      string(o.Side),
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func buildExecutionResponse(message string, exec *engine.Execution) executionResponse {
	return executionResponse{
		Message: message,
		Order:   buildOrderResponse(exec.Order),
		Holding: buildHoldingResponse(exec.Holding),
	}
}

// Buy handles POST /newOrder.
func (h *OrderHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	exec, err := h.orderSvc.Buy(r.Context(), service.BuyRequest{
		Name:  req.Name,
		Qty:   req.Qty,
		Price: req.Price,
		Mode:  req.Mode,
	})
	if err != nil {
		writeDomainError(w, h.logger, "buy", err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildExecutionResponse("Buy order executed!", exec))
}

// Sell handles POST /sellStock.
func (h *OrderHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	exec, err := h.orderSvc.Sell(r.Context(), service.SellRequest{
		NameOrID: req.NameOrID,
		Name:     req.Name,
		Qty:      req.Qty,
		Price:    req.Price,
	})
	if err != nil {
		writeDomainError(w, h.logger, "sell", err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildExecutionResponse("Stock sold successfully!", exec))
}

// List handles GET /allOrders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderSvc.ListOrders(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, "list orders", err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, buildOrderResponse(o))
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Reconcile handles GET /reconcile.
func (h *OrderHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.orderSvc.Reconcile(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, "reconcile", err)
		return
	}

	resp := reconcileResponse{
		CheckedAt:  report.CheckedAt.UTC().Format(time.RFC3339),
		Orders:     report.Orders,
		Holdings:   report.Holdings,
		Consistent: report.Consistent,
		Drift:      make([]driftResponse, 0, len(report.Drift)),
	}
	for _, d := range report.Drift {
		resp.Drift = append(resp.Drift, driftResponse{
			Name:           d.Instrument,
			LedgerQty:      number(d.LedgerQuantity),
			ProjectedQty:   number(d.ProjectedQuantity),
			LedgerPrice:    number(d.LedgerAveragePrice),
			ProjectedPrice: number(d.ProjectedAveragePrice),
		})
	}
	WriteJSON(w, http.StatusOK, resp)
}
