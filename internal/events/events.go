// Package events publishes executed orders to downstream consumers.
package events

import (
	"encoding/json"
	"time"

	"github.com/efreitasn/holdingsledger/internal/domain"
)

// OrderExecutedType is the event type carried in the message header.
const OrderExecutedType = "order.executed"

// OrderExecuted is published once per accepted order, after it commits.
type OrderExecuted struct {
	OrderID         string      `json:"order_id"`
	Name            string      `json:"name"`
	Qty             json.Number `json:"qty"`
	Price           json.Number `json:"price"`
	Side            string      `json:"side"`
	ExecutedAt      string      `json:"executed_at"`
	HoldingQty      json.Number `json:"holding_qty"`
	HoldingAvgPrice json.Number `json:"holding_avg_price"`
}

// NewOrderExecuted builds the event for order. h is the holding after the
// order, or nil when the order closed it.
func NewOrderExecuted(order *domain.Order, h *domain.Holding) OrderExecuted {
	ev := OrderExecuted{
		OrderID:         order.ID,
		Name:            order.Instrument,
		Qty:             json.Number(order.Quantity.String()),
		Price:           json.Number(order.Price.String()),
		Side:            string(order.Side),
		ExecutedAt:      order.CreatedAt.UTC().Format(time.RFC3339Nano),
		HoldingQty:      "0",
		HoldingAvgPrice: "0",
	}
	if h != nil {
		ev.HoldingQty = json.Number(h.Quantity.String())
		ev.HoldingAvgPrice = json.Number(h.AveragePrice.String())
	}
	return ev
}

// Key partitions events by instrument so one instrument's events stay in
// order.
func (e OrderExecuted) Key() string {
	return domain.InstrumentKey(e.Name)
}

// Publisher delivers events. Publish must not block on the downstream
// system and never reports delivery failures to the caller.
type Publisher interface {
	Publish(ev OrderExecuted)
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(OrderExecuted) {}

func (NopPublisher) Close() error { return nil }
