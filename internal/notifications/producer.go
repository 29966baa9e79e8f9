package notifications

import (
	"context"
	"fmt"
	"time"

	"voyago/internal/shared/config"
	"voyago/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher publishes workflow events for downstream consumers
type Publisher interface {
	Publish(ctx context.Context, event *CancellationEvent) error
	Close() error
}

// KafkaPublisher publishes cancellation events to Kafka with a sync
// producer. Idempotent writes plus the booking-keyed hash partitioner give
// per-booking ordering without any coordination here.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logger.Logger
}

// NewKafkaPublisher creates a Kafka publisher from the app config
func NewKafkaPublisher(cfg config.KafkaConfig, log *logger.Logger) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Timeout = 10 * time.Second
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer: producer,
		topic:    cfg.Topic,
		logger:   log,
	}, nil
}

// Publish sends one event, keyed by booking for per-booking ordering
func (p *KafkaPublisher) Publish(ctx context.Context, event *CancellationEvent) error {
	payload, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.PartitionKey()),
		Value:     sarama.ByteEncoder(payload),
		Headers:   p.createHeaders(event),
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish cancellation event: %w", err)
	}

	p.logger.InfoWithContext(ctx, "cancellation event published", map[string]interface{}{
		"event_type": string(event.Type),
		"request_id": event.RequestID.String(),
		"partition":  partition,
		"offset":     offset,
	})
	return nil
}

func (p *KafkaPublisher) createHeaders(event *CancellationEvent) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("request_id"), Value: []byte(event.RequestID.String())},
		{Key: []byte("booking_id"), Value: []byte(event.BookingID.String())},
		{Key: []byte("producer"), Value: []byte("voyago-cancellations")},
		{Key: []byte("occurred_at"), Value: []byte(event.OccurredAt.Format(time.RFC3339))},
	}
}

// Close closes the underlying producer
func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}

// NoopPublisher drops events; used when Kafka is disabled in config
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event *CancellationEvent) error { return nil }
func (NoopPublisher) Close() error                                                { return nil }
