// Package kafka publishes events to Kafka topics named after the event subject.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/abgdnv/gofulfillment/pkg/messaging"
	"github.com/segmentio/kafka-go"
)

const EventIDHeader = "event-id"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher creates a synchronous writer. Messages are hashed by event key,
// so all events of one order land on the same partition in publish order.
func NewKafkaPublisher(brokers []string, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			WriteTimeout:           timeout,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic:   event.Subject(),
		Key:     []byte(event.Key()),
		Value:   data,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: EventIDHeader, Value: []byte(event.ID())}},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
