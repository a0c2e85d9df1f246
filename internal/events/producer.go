// Package events publishes storefront domain events to Kafka. Publishing is
// best-effort: a broker failure is logged and never fails the request that
// triggered it.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// NewProducer returns nil when no brokers are configured; a nil Producer is
// safe to publish on and does nothing.
func NewProducer(brokers []string, topic string, l *slog.Logger) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	if l == nil {
		l = slog.Default()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 5 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: w, log: l}
}

func (p *Producer) Publish(ctx context.Context, key string, event any) {
	if p == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.log.Error("event_marshal_failed", "key", key, "error", err)
		return
	}
	msg := kafka.Message{Key: []byte(key), Value: data}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("event_publish_failed", "key", key, "error", err)
	}
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
