// Package stream publishes dossier lifecycle events to Kafka. Consumers
// (reporting, archival) replay the ledger from the topic; the engine treats
// publication as best-effort and never blocks a transition on it.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	id "sged/pkg/domain"
)

// Event is one lifecycle record on the wire. The dossier ID keys the record
// so per-dossier ordering survives partitioning.
type Event struct {
	DossierID id.DossierID `json:"dossier_id"`
	Numero    string       `json:"numero"`
	Action    string       `json:"action"`
	StationID string       `json:"station_id,omitempty"`
	ActorID   id.UserID    `json:"actor_id"`
	At        time.Time    `json:"at"`
}

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// KafkaPublisher produces events with franz-go. Produce is asynchronous;
// failures are logged, never surfaced.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal lifecycle event", "error", err)
		return
	}
	record := &kgo.Record{
		Key:   []byte(e.DossierID.String()),
		Value: payload,
		Topic: p.topic,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("produce lifecycle event",
				"dossier_id", e.DossierID,
				"action", e.Action,
				"error", err,
			)
		}
	})
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	p.client.Close()
	return nil
}

// NoopPublisher discards events. Tests and broker-less deployments use it.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (*NoopPublisher) Publish(context.Context, Event) {}
