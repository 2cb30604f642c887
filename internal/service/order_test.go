package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/holdingsledger/internal/domain"
	"github.com/efreitasn/holdingsledger/internal/engine"
	"github.com/efreitasn/holdingsledger/internal/events"
	"github.com/efreitasn/holdingsledger/internal/store"
)

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderExecuted
}

func (p *recordingPublisher) Publish(ev events.OrderExecuted) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Close() error { return nil }

// testOrderEnv bundles all dependencies needed for OrderService tests.
type testOrderEnv struct {
	store     *store.MemoryStore
	publisher *recordingPublisher
	svc       *OrderService
}

func newTestOrderEnv(sell SellValidation) *testOrderEnv {
	s := store.NewMemoryStore()
	pub := &recordingPublisher{}
	return &testOrderEnv{
		store:     s,
		publisher: pub,
		svc:       NewOrderService(engine.New(s), s, pub, sell),
	}
}

func (env *testOrderEnv) buy(t *testing.T, name string, qty, price any) *engine.Execution {
	t.Helper()
	exec, err := env.svc.Buy(context.Background(), BuyRequest{Name: name, Qty: qty, Price: price, Mode: "BUY"})
	if err != nil {
		t.Fatalf("buy %s: %v", name, err)
	}
	return exec
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParseSellValidation(t *testing.T) {
	tests := []struct {
		in      string
		want    SellValidation
		wantErr bool
	}{
		{"permissive", SellPermissive, false},
		{"STRICT", SellStrict, false},
		{" strict ", SellStrict, false},
		{"lenient", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSellValidation(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSellValidation(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseSellValidation(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

const (
	qtyRangeMsg   = "qty must have at most 20 integer digits and 18 decimal places"
	priceRangeMsg = "price must have at most 20 integer digits and 18 decimal places"
)

func TestBuy_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     BuyRequest
		wantMsg string
	}{
		{"missing name", BuyRequest{Qty: 1, Price: 1, Mode: "BUY"}, "name is required"},
		{"blank name", BuyRequest{Name: "  ", Qty: 1, Price: 1, Mode: "BUY"}, "name is required"},
		{"missing mode", BuyRequest{Name: "TCS", Qty: 1, Price: 1}, "mode is required"},
		{"sell mode", BuyRequest{Name: "TCS", Qty: 1, Price: 1, Mode: "SELL"}, "mode must be BUY"},
		{"unknown mode", BuyRequest{Name: "TCS", Qty: 1, Price: 1, Mode: "HOLD"}, "mode must be BUY"},
		{"missing qty", BuyRequest{Name: "TCS", Price: 1, Mode: "BUY"}, "qty is required"},
		{"zero qty", BuyRequest{Name: "TCS", Qty: json.Number("0"), Price: 1, Mode: "BUY"}, "qty must be greater than 0"},
		{"negative qty", BuyRequest{Name: "TCS", Qty: -1, Price: 1, Mode: "BUY"}, "qty must be greater than 0"},
		{"text qty", BuyRequest{Name: "TCS", Qty: "ten", Price: 1, Mode: "BUY"}, "qty must be a number"},
		{"bool qty", BuyRequest{Name: "TCS", Qty: true, Price: 1, Mode: "BUY"}, "qty must be a number"},
		{"tiny exponent qty", BuyRequest{Name: "TCS", Qty: json.Number("1e-20000000"), Price: 1, Mode: "BUY"}, qtyRangeMsg},
		{"huge exponent qty", BuyRequest{Name: "TCS", Qty: json.Number("1e2000000000"), Price: 1, Mode: "BUY"}, qtyRangeMsg},
		{"too many digits qty", BuyRequest{Name: "TCS", Qty: "123456789012345678901", Price: 1, Mode: "BUY"}, qtyRangeMsg},
		{"huge exponent price", BuyRequest{Name: "TCS", Qty: 1, Price: json.Number("1E+999999999"), Mode: "BUY"}, priceRangeMsg},
		{"missing price", BuyRequest{Name: "TCS", Qty: 1, Mode: "BUY"}, "price is required"},
		{"zero price", BuyRequest{Name: "TCS", Qty: 1, Price: "0", Mode: "BUY"}, "price must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestOrderEnv(SellPermissive)
			_, err := env.svc.Buy(context.Background(), tt.req)

			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Message != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, ve.Message)
			}
			orders, _ := env.store.ListOrders(context.Background())
			if len(orders) != 0 {
				t.Errorf("expected no orders, got %d", len(orders))
			}
			if len(env.publisher.events) != 0 {
				t.Errorf("expected no events, got %d", len(env.publisher.events))
			}
		})
	}
}

func TestBuy_AcceptsNumericStringsAndLowercaseMode(t *testing.T) {
	env := newTestOrderEnv(SellPermissive)

	exec, err := env.svc.Buy(context.Background(), BuyRequest{Name: " TCS ", Qty: "10", Price: json.Number("99.5"), Mode: "buy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.Holding.Instrument != "TCS" {
		t.Errorf("expected trimmed name, got %q", exec.Holding.Instrument)
	}
	if !exec.Holding.Quantity.Equal(dec("10")) || !exec.Holding.AveragePrice.Equal(dec("99.5")) {
		t.Errorf("unexpected holding %s@%s", exec.Holding.Quantity, exec.Holding.AveragePrice)
	}
}

func TestBuy_PublishesEvent(t *testing.T) {
	env := newTestOrderEnv(SellPermissive)
	env.buy(t, "TCS", 10, 100)
	exec := env.buy(t, "tcs", 10, 200)

	if len(env.publisher.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(env.publisher.events))
	}
	ev := env.publisher.events[1]
	if ev.OrderID != exec.Order.ID || ev.Side != "BUY" || ev.Name != "tcs" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.HoldingQty != "20" || ev.HoldingAvgPrice != "150" {
		t.Errorf("expected holding 20@150, got %s@%s", ev.HoldingQty, ev.HoldingAvgPrice)
	}
}

func TestSell_IdentifierFallsBackToName(t *testing.T) {
	env := newTestOrderEnv(SellPermissive)
	opened := env.buy(t, "INFY", 5, 100)

	tests := []struct {
		name string
		req  SellRequest
	}{
		{"nameOrId as name", SellRequest{NameOrID: "infy", Qty: 1, Price: 1}},
		{"nameOrId as id", SellRequest{NameOrID: opened.Holding.ID, Qty: 1, Price: 1}},
		{"name only", SellRequest{Name: "Infy", Qty: 1, Price: 1}},
		{"nameOrId wins over name", SellRequest{NameOrID: "INFY", Name: "unknown", Qty: 1, Price: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, err := env.svc.Sell(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if exec.Order.Instrument != "INFY" {
				t.Errorf("expected canonical INFY, got %q", exec.Order.Instrument)
			}
		})
	}
}

func TestSell_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mode    SellValidation
		req     SellRequest
		wantMsg string // empty means accepted
	}{
		{"missing identifier", SellPermissive, SellRequest{Qty: 1, Price: 1}, "nameOrId is required"},
		{"null qty", SellPermissive, SellRequest{Name: "TCS", Price: 1}, "qty is required"},
		{"null price", SellPermissive, SellRequest{Name: "TCS", Qty: 1}, "price is required"},
		{"text qty", SellPermissive, SellRequest{Name: "TCS", Qty: "abc", Price: 1}, "qty must be a number"},
		{"permissive tiny exponent qty", SellPermissive, SellRequest{Name: "TCS", Qty: json.Number("-1e-20000000"), Price: 1}, qtyRangeMsg},
		{"permissive huge exponent price", SellPermissive, SellRequest{Name: "TCS", Qty: 1, Price: json.Number("1e2000000000")}, priceRangeMsg},
		{"permissive zero qty", SellPermissive, SellRequest{Name: "TCS", Qty: 0, Price: 1}, ""},
		{"permissive negative price", SellPermissive, SellRequest{Name: "TCS", Qty: 1, Price: -5}, ""},
		{"strict zero qty", SellStrict, SellRequest{Name: "TCS", Qty: 0, Price: 1}, "qty must be greater than 0"},
		{"strict negative price", SellStrict, SellRequest{Name: "TCS", Qty: 1, Price: -5}, "price must be greater than 0"},
		{"strict positive", SellStrict, SellRequest{Name: "TCS", Qty: "1", Price: "1"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestOrderEnv(tt.mode)
			env.buy(t, "TCS", 10, 100)

			_, err := env.svc.Sell(context.Background(), tt.req)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("expected sell to be accepted, got %v", err)
				}
				return
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Message != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, ve.Message)
			}
		})
	}
}

func TestSell_PermissiveNegativeQuantityIncreasesHolding(t *testing.T) {
	env := newTestOrderEnv(SellPermissive)
	env.buy(t, "TCS", 10, 100)

	exec, err := env.svc.Sell(context.Background(), SellRequest{Name: "TCS", Qty: -5, Price: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exec.Holding.Quantity.Equal(dec("15")) {
		t.Errorf("expected 15, got %s", exec.Holding.Quantity)
	}
}

func TestSell_Errors(t *testing.T) {
	env := newTestOrderEnv(SellPermissive)
	env.buy(t, "TCS", 5, 100)

	_, err := env.svc.Sell(context.Background(), SellRequest{Name: "HDFC", Qty: 1, Price: 1})
	if !errors.Is(err, domain.ErrHoldingNotFound) {
		t.Errorf("expected ErrHoldingNotFound, got %v", err)
	}

	_, err = env.svc.Sell(context.Background(), SellRequest{Name: "TCS", Qty: 6, Price: 1})
	if !errors.Is(err, domain.ErrInsufficientQuantity) {
		t.Errorf("expected ErrInsufficientQuantity, got %v", err)
	}

	if len(env.publisher.events) != 1 {
		t.Errorf("expected only the buy event, got %d", len(env.publisher.events))
	}
}

func TestSell_ClosingPublishesZeroHolding(t *testing.T) {
	env := newTestOrderEnv(SellPermissive)
	env.buy(t, "TCS", 5, 100)

	exec, err := env.svc.Sell(context.Background(), SellRequest{Name: "TCS", Qty: 5, Price: 120})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.Holding != nil {
		t.Errorf("expected closed holding")
	}
	ev := env.publisher.events[len(env.publisher.events)-1]
	if ev.Side != "SELL" || ev.HoldingQty != "0" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestListOrdersAndReconcile(t *testing.T) {
	env := newTestOrderEnv(SellPermissive)
	env.buy(t, "TCS", 10, 100)
	env.buy(t, "TCS", 10, 200)
	if _, err := env.svc.Sell(context.Background(), SellRequest{Name: "TCS", Qty: 15, Price: 180}); err != nil {
		t.Fatalf("sell: %v", err)
	}

	orders, err := env.svc.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}

	report, err := env.svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !report.Consistent {
		t.Errorf("expected consistent report, got %+v", report.Drift)
	}
}
