package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/campflow/matching-engine/internal/domain"
)

// KafkaPublisherConfig holds configuration for KafkaPublisher
type KafkaPublisherConfig struct {
	Brokers  []string
	ClientID string
	Topic    string
	Timeout  time.Duration
}

// KafkaPublisher publishes booking transition events to Kafka. Records
// are keyed by period id so all transitions of one matching run land on
// the same partition, in order.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher creates a new KafkaPublisher
func NewKafkaPublisher(ctx context.Context, cfg *KafkaPublisherConfig) (*KafkaPublisher, error) {
	if cfg.Topic == "" {
		cfg.Topic = TopicBookingStateChanged
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.ProduceRequestTimeout(cfg.Timeout),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}

	return &KafkaPublisher{
		client: client,
		topic:  cfg.Topic,
	}, nil
}

// Publish sends the event and waits for broker acknowledgement
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.Event) error {
	record, err := Record(p.topic, event)
	if err != nil {
		return err
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	return nil
}

// Close flushes outstanding records and closes the client
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// Record builds the Kafka record for an event
func Record(topic string, event *domain.Event) (*kgo.Record, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.PeriodID.String()),
		Value: value,
	}, nil
}

// Ensure KafkaPublisher implements Publisher
var _ Publisher = (*KafkaPublisher)(nil)
