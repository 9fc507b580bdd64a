package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/isectech/bulkshare/pkg/logging"
	"github.com/isectech/bulkshare/pkg/metrics"
	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/shared/common"
)

// MessageWriter is the part of *kafka.Writer the publisher uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisherConfig represents Kafka publisher configuration
type KafkaPublisherConfig struct {
	Brokers      []string           `json:"brokers"`
	ClientID     string             `json:"client_id"`
	Topic        string             `json:"topic"`
	BatchTimeout time.Duration      `json:"batch_timeout"`
	WriteTimeout time.Duration      `json:"write_timeout"`
	RequiredAcks kafka.RequiredAcks `json:"required_acks"`
}

// KafkaEventPublisher writes settlement events as JSON, keyed by order ID
// so every event for one order lands on the same partition.
type KafkaEventPublisher struct {
	writer   MessageWriter
	topic    string
	clientID string
	logger   *logging.Logger
	metrics  *metrics.Collector
}

// NewKafkaEventPublisher creates a publisher with a kafka.Writer for the topic
func NewKafkaEventPublisher(config KafkaPublisherConfig, logger *logging.Logger, collector *metrics.Collector) *KafkaEventPublisher {
	publisher := &KafkaEventPublisher{
		topic:    config.Topic,
		clientID: config.ClientID,
		logger:   logger.WithComponent("kafka-publisher"),
		metrics:  collector,
	}

	publisher.writer = &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: config.BatchTimeout,
		WriteTimeout: config.WriteTimeout,
		RequiredAcks: config.RequiredAcks,
		ErrorLogger:  kafka.LoggerFunc(publisher.logKafkaError),
	}

	publisher.logger.Info("Kafka publisher initialized",
		zap.Strings("brokers", config.Brokers),
		zap.String("topic", config.Topic))

	return publisher
}

// NewKafkaEventPublisherWithWriter wraps an existing writer
func NewKafkaEventPublisherWithWriter(writer MessageWriter, topic string, logger *logging.Logger, collector *metrics.Collector) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		writer:  writer,
		topic:   topic,
		logger:  logger.WithComponent("kafka-publisher"),
		metrics: collector,
	}
}

// Publish writes one event
func (p *KafkaEventPublisher) Publish(ctx context.Context, event entity.SettlementEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.metrics.RecordEventPublished(string(event.Type), "error")
		return common.WrapError(err, common.ErrCodeInternal, "failed to marshal event")
	}

	message := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "produced_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}
	if p.clientID != "" {
		message.Headers = append(message.Headers, kafka.Header{Key: "producer_id", Value: []byte(p.clientID)})
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.metrics.RecordEventPublished(string(event.Type), "error")
		p.logger.Error("Failed to publish event",
			zap.String("event_id", event.EventID.String()),
			zap.String("topic", p.topic),
			logging.OrderID(event.OrderID),
			zap.Error(err))
		return common.NewAppErrorWithCause(common.ErrCodeServiceUnavailable, "failed to publish event", err)
	}

	p.metrics.RecordEventPublished(string(event.Type), "ok")
	p.logger.Debug("Event published",
		zap.String("event_id", event.EventID.String()),
		zap.String("event_type", string(event.Type)),
		logging.OrderID(event.OrderID))
	return nil
}

// Close flushes and closes the writer
func (p *KafkaEventPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}

func (p *KafkaEventPublisher) logKafkaError(msg string, args ...interface{}) {
	p.logger.Error("Kafka writer error", zap.String("message", fmt.Sprintf(msg, args...)))
}

// NoopPublisher drops every event; used when no brokers are configured
type NoopPublisher struct{}

// Publish implements the publisher interface
func (NoopPublisher) Publish(context.Context, entity.SettlementEvent) error {
	return nil
}

// Close implements io.Closer
func (NoopPublisher) Close() error {
	return nil
}
