package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/orderflow/order-ingest-service/internal/model"
)

// Publish failure taxonomy. A rejected event reached the broker and was
// refused; a connection failure never got that far. Both leave the stored
// record intact and discoverable for the sweep.
var (
	ErrConnectionFailed = errors.New("broker connection failed")
	ErrBrokerRejected   = errors.New("broker rejected event")
)

// KafkaPublisher delivers order-accepted events with at-least-once
// semantics. kafka.Writer redials per batch, so a failed write does not
// poison later calls.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.SugaredLogger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaPublisher{writer: w, log: logger}
}

// Publish sends one event, keyed by the order id so consumers can dedupe
// replays from the sweep.
func (p *KafkaPublisher) Publish(ctx context.Context, evt model.OutboxEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.ID, err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.ID),
		Value: value,
		Time:  evt.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return classify(evt.ID, err)
	}
	p.log.Infow("event published", "order_id", evt.ID)
	return nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// classify maps transport errors onto the publish taxonomy. Protocol errors
// come back as kafka.Error; everything else (dial, timeout, context) is a
// connection-level failure.
func classify(id string, err error) error {
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return fmt.Errorf("publish %s: %w: %v", id, ErrBrokerRejected, err)
	}
	var werrs kafka.WriteErrors
	if errors.As(err, &werrs) {
		for _, we := range werrs {
			var ke kafka.Error
			if errors.As(we, &ke) {
				return fmt.Errorf("publish %s: %w: %v", id, ErrBrokerRejected, err)
			}
		}
	}
	return fmt.Errorf("publish %s: %w: %v", id, ErrConnectionFailed, err)
}
