package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/holdingsledger/internal/domain"
	"github.com/efreitasn/holdingsledger/internal/engine"
	"github.com/efreitasn/holdingsledger/internal/events"
	"github.com/efreitasn/holdingsledger/internal/store"
)

// SellValidation selects how sell amounts are checked.
type SellValidation string

const (
	// SellPermissive only requires qty and price to be numbers.
	SellPermissive SellValidation = "permissive"
	// SellStrict also requires both to be greater than zero.
	SellStrict SellValidation = "strict"
)

// ParseSellValidation returns the mode named by s.
func ParseSellValidation(s string) (SellValidation, error) {
	switch v := SellValidation(strings.ToLower(strings.TrimSpace(s))); v {
	case SellPermissive, SellStrict:
		return v, nil
	default:
		return "", fmt.Errorf("unknown sell validation %q, must be one of: permissive, strict", s)
	}
}

// BuyRequest is a buy as received from a client. Qty and Price accept any
// JSON-decoded number or numeric string.
type BuyRequest struct {
	Name  string
	Qty   any
	Price any
	Mode  string
}

// SellRequest is a sell as received from a client. NameOrID takes
// precedence over Name.
type SellRequest struct {
	NameOrID string
	Name     string
	Qty      any
	Price    any
}

// Identifier returns the sell target.
func (r SellRequest) Identifier() string {
	if r.NameOrID != "" {
		return r.NameOrID
	}
	return r.Name
}

// OrderService validates orders, executes them, and publishes the result.
type OrderService struct {
	engine    *engine.Engine
	repo      store.Repository
	publisher events.Publisher
	sell      SellValidation
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(
	eng *engine.Engine,
	repo store.Repository,
	publisher events.Publisher,
	sell SellValidation,
) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if sell == "" {
		sell = SellPermissive
	}
	return &OrderService{
		engine:    eng,
		repo:      repo,
		publisher: publisher,
		sell:      sell,
	}
}

// Buy validates req and adds it to the instrument's holding.
func (s *OrderService) Buy(ctx context.Context, req BuyRequest) (*engine.Execution, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &domain.ValidationError{Message: "name is required"}
	}
	if req.Mode == "" {
		return nil, &domain.ValidationError{Message: "mode is required"}
	}
	side, ok := domain.ParseSide(req.Mode)
	if !ok || side != domain.SideBuy {
		return nil, &domain.ValidationError{Message: "mode must be BUY"}
	}
	qty, err := positiveAmount("qty", req.Qty)
	if err != nil {
		return nil, err
	}
	price, err := positiveAmount("price", req.Price)
	if err != nil {
		return nil, err
	}

	exec, err := s.engine.Buy(ctx, engine.BuyIntent{Instrument: name, Quantity: qty, Price: price})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(events.NewOrderExecuted(exec.Order, exec.Holding))
	return exec, nil
}

// Sell validates req and removes the quantity from the resolved holding.
func (s *OrderService) Sell(ctx context.Context, req SellRequest) (*engine.Execution, error) {
	identifier := strings.TrimSpace(req.Identifier())
	if identifier == "" {
		return nil, &domain.ValidationError{Message: "nameOrId is required"}
	}

	amount := numericAmount
	if s.sell == SellStrict {
		amount = positiveAmount
	}
	qty, err := amount("qty", req.Qty)
	if err != nil {
		return nil, err
	}
	price, err := amount("price", req.Price)
	if err != nil {
		return nil, err
	}

	exec, err := s.engine.Sell(ctx, engine.SellIntent{Identifier: identifier, Quantity: qty, Price: price})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(events.NewOrderExecuted(exec.Order, exec.Holding))
	return exec, nil
}

// ListOrders returns the order log in creation order.
func (s *OrderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.ListOrders(ctx)
}

// Reconcile compares the holdings with a replay of the order log.
func (s *OrderService) Reconcile(ctx context.Context) (*engine.Report, error) {
	return s.engine.Reconcile(ctx)
}

func numericAmount(field string, v any) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, &domain.ValidationError{Message: field + " is required"}
	}
	d, err := domain.ParseAmount(v)
	switch {
	case errors.Is(err, domain.ErrAmountOutOfRange):
		return decimal.Zero, &domain.ValidationError{Message: fmt.Sprintf(
			"%s must have at most %d integer digits and %d decimal places",
			field, domain.MaxIntegerDigits, domain.MaxFractionDigits)}
	case err != nil:
		return decimal.Zero, &domain.ValidationError{Message: field + " must be a number"}
	}
	return d, nil
}

func positiveAmount(field string, v any) (decimal.Decimal, error) {
	d, err := numericAmount(field, v)
	if err != nil {
		return d, err
	}
	if !d.IsPositive() {
		return d, &domain.ValidationError{Message: field + " must be greater than 0"}
	}
	return d, nil
}
