package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/efreitasn/holdingsledger/internal/domain"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func sampleEvent(h *domain.Holding) OrderExecuted {
	o := &domain.Order{
		ID:         "o-1",
		Instrument: "TCS",
		Quantity:   decimal.RequireFromString("15"),
		Price:      decimal.RequireFromString("180.5"),
		Side:       domain.SideSell,
		CreatedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	return NewOrderExecuted(o, h)
}

func TestNewOrderExecuted(t *testing.T) {
	h := &domain.Holding{ID: "h-1", Instrument: "TCS", Quantity: decimal.RequireFromString("5"), AveragePrice: decimal.RequireFromString("150")}
	ev := sampleEvent(h)

	body, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"order_id": "o-1",
		"name": "TCS",
		"qty": 15,
		"price": 180.5,
		"side": "SELL",
		"executed_at": "2024-03-01T10:00:00Z",
		"holding_qty": 5,
		"holding_avg_price": 150
	}`, string(body))
	assert.Equal(t, "tcs", ev.Key())

	closed := sampleEvent(nil)
	assert.Equal(t, json.Number("0"), closed.HoldingQty)
	assert.Equal(t, json.Number("0"), closed.HoldingAvgPrice)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, zap.NewNop(), time.Second)

	p.Publish(sampleEvent(nil))
	require.NoError(t, p.Close())

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "tcs", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, OrderExecutedType, string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "o-1", decoded["order_id"])
	assert.True(t, w.closed)
}

func TestKafkaPublisher_FailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaPublisher(w, zap.New(core), time.Second)

	p.Publish(sampleEvent(nil))
	require.NoError(t, p.Close())

	entries := logs.FilterMessage("publish event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "o-1", entries[0].ContextMap()["order_id"])
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	p.Publish(sampleEvent(nil))
	assert.NoError(t, p.Close())
}
