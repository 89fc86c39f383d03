package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/event"
	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

const eventTypeHeader = "event_type"

// Envelope is the wire format of a published event.
type Envelope struct {
	ID         string          `json:"id"`
	Type       event.Type      `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type failureRecorder interface {
	IncPublishFailure(eventType string)
}

// KafkaPublisher produces events asynchronously. Delivery failures are logged, never returned.
type KafkaPublisher struct {
	client  *kgo.Client
	logger  *slog.Logger
	metrics failureRecorder
}

func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger, metrics failureRecorder) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}

	return &KafkaPublisher{client: client, logger: logger, metrics: metrics}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, e event.Event) error {
	record, err := encodeRecord(e)
	if err != nil {
		return err
	}

	// The record outlives the request that produced it.
	p.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("kafka: event delivery failed",
				"type", string(e.EventType()),
				"key", string(r.Key),
				"error", err,
			)
			if p.metrics != nil {
				p.metrics.IncPublishFailure(string(e.EventType()))
			}
		}
	})
	return nil
}

// Close flushes buffered records and closes the client.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	defer p.client.Close()
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("kafka: flush: %w", err)
	}
	return nil
}

func encodeRecord(e event.Event) (*kgo.Record, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", e.EventType(), err)
	}
	value, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       e.EventType(),
		OccurredAt: e.OccurredAt().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", e.EventType(), err)
	}
	return &kgo.Record{
		Key:   []byte(e.Key()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: eventTypeHeader, Value: []byte(e.EventType())},
		},
	}, nil
}
