package notify

import (
	"context"
	"encoding/json"
	"time"

	"gerai-be/internal/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher delivers order events to downstream consumers. Delivery is
// best-effort: callers invoke it only after their transaction committed and
// must treat failures as log-only.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		logger.FromCtx(ctx).Error("failed to publish event",
			zap.String("key", key),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured, e.g. in local
// development and tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, key string, event any) error {
	logger.FromCtx(ctx).Debug("event publishing disabled, dropping event",
		zap.String("key", key),
	)
	return nil
}

func (NoopPublisher) Close() error { return nil }
