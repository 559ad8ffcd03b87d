package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Kafka header names set on every published message
const (
	HeaderEventType = "event_type"
	HeaderTenantID  = "tenant_id"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards committed ledger events to a Kafka topic.
// Messages are keyed by aggregate ID so one account's events stay ordered in a partition.
type KafkaPublisher struct {
	writer     MessageWriter
	serializer *EventSerializer
	topic      string
	logger     *zap.Logger
}

// NewKafkaWriter builds a kafka-go writer from configuration
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}
}

// NewKafkaPublisher creates a publisher over writer
func NewKafkaPublisher(writer MessageWriter, serializer *EventSerializer, topic string, logger *zap.Logger) *KafkaPublisher {
	if serializer == nil {
		serializer = NewLedgerEventSerializer()
	}
	return &KafkaPublisher{writer: writer, serializer: serializer, topic: topic, logger: logger}
}

// Publish writes all events in one batch
func (p *KafkaPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, p.topic+" publish",
		telemetry.WithSpanKind(trace.SpanKindProducer),
		telemetry.WithAttribute("messaging.system", "kafka"),
		telemetry.WithAttribute("messaging.destination.name", p.topic),
		telemetry.WithAttribute("messaging.batch.message_count", len(events)),
	)
	defer span.End()

	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := p.serializer.Serialize(ev)
		if err != nil {
			telemetry.RecordError(span, err)
			return err
		}
		carrier := headerCarrier{
			{Key: HeaderEventType, Value: []byte(ev.EventType())},
			{Key: HeaderTenantID, Value: []byte(ev.TenantID().String())},
		}
		otel.GetTextMapPropagator().Inject(ctx, &carrier)
		msgs = append(msgs, kafka.Message{
			Key:     []byte(ev.AggregateID().String()),
			Value:   value,
			Headers: carrier,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		telemetry.RecordError(span, err)
		p.logger.Error("kafka publish failed", zap.String("topic", p.topic), zap.Int("count", len(msgs)), zap.Error(err))
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	telemetry.SetOK(span)
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// headerCarrier adapts Kafka headers to the OTel propagation carrier
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(*c))
	for i, h := range *c {
		keys[i] = h.Key
	}
	return keys
}

// ExtractContext returns ctx carrying the trace context found in msg's headers
func ExtractContext(ctx context.Context, msg kafka.Message) context.Context {
	carrier := headerCarrier(msg.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &carrier)
}

// MultiPublisher fans events out to several publishers. Every publisher is
// attempted; failures are joined.
type MultiPublisher []shared.EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ shared.EventPublisher    = (*KafkaPublisher)(nil)
	_ shared.EventPublisher    = MultiPublisher(nil)
	_ propagation.TextMapCarrier = (*headerCarrier)(nil)
)
