package repository

import (
	"context"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/repository"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
)

// producer is the part of pkg/kafka.Producer the publisher needs.
type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaPublisher implements EventPublisher for Kafka. Events are keyed by
// session so one session's runs stay ordered within a partition.
type KafkaPublisher struct {
	producer producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(p producer, topic string) repository.EventPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e *models.RunEvent) error {
	return p.producer.Publish(ctx, p.topic, eventKey(e), e)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, events []*models.RunEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		msgs[i] = pkgkafka.Message{Key: eventKey(e), Value: e}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func eventKey(e *models.RunEvent) []byte {
	if e.SessionID != "" {
		return []byte(e.SessionID)
	}
	return []byte(e.Symbol)
}

// DiscardPublisher drops events. Used when Kafka is disabled.
type DiscardPublisher struct {
	log *applogger.Logger
}

func NewDiscardPublisher(log *applogger.Logger) repository.EventPublisher {
	if log == nil {
		log = applogger.NewNop()
	}
	return &DiscardPublisher{log: log}
}

func (p *DiscardPublisher) Publish(_ context.Context, e *models.RunEvent) error {
	p.log.Debug("run event dropped, kafka disabled",
		applogger.String("id", e.ID),
		applogger.String("outcome", string(e.Outcome)),
	)
	return nil
}

func (p *DiscardPublisher) PublishBatch(ctx context.Context, events []*models.RunEvent) error {
	for _, e := range events {
		_ = p.Publish(ctx, e)
	}
	return nil
}

func (p *DiscardPublisher) Close() error { return nil }
