package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic in the background.
type KafkaPublisher struct {
	w       messageWriter
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// KafkaConfig configures NewKafkaPublisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// NewKafkaPublisher creates a publisher backed by a kafka-go Writer.
func NewKafkaPublisher(cfg KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.WriteTimeout,
	}
	return newKafkaPublisher(w, logger, cfg.WriteTimeout)
}

func newKafkaPublisher(w messageWriter, logger *zap.Logger, timeout time.Duration) *KafkaPublisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaPublisher{
		w:       w,
		logger:  logger,
		timeout: timeout,
	}
}

// Publish hands ev to a goroutine. Failures are logged.
func (p *KafkaPublisher) Publish(ev OrderExecuted) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("encode event", zap.String("order_id", ev.OrderID), zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(ev.Key()),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(OrderExecutedType)},
		},
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.w.WriteMessages(ctx, msg); err != nil {
			p.logger.Warn("publish event",
				zap.String("order_id", ev.OrderID),
				zap.String("name", ev.Name),
				zap.Error(err),
			)
		}
	}()
}

// Close waits for in-flight publishes and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.wg.Wait()
	return p.w.Close()
}
