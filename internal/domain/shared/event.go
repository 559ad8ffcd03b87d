package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact about a ledger aggregate, published after commit
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// EventMeta is embedded by concrete events to satisfy DomainEvent.
// The JSON names match the envelope published to Kafka.
type EventMeta struct {
	ID        uuid.UUID `json:"event_id"`
	Type      string    `json:"event_type"`
	At        time.Time `json:"occurred_at"`
	Aggregate uuid.UUID `json:"aggregate_id"`
	AggKind   string    `json:"aggregate_type"`
	Tenant    uuid.UUID `json:"tenant_id"`
}

// NewEventMeta stamps a fresh event id and the current UTC time
func NewEventMeta(eventType, aggregateType string, aggregateID, tenantID uuid.UUID) EventMeta {
	return EventMeta{
		ID:        uuid.New(),
		Type:      eventType,
		At:        time.Now().UTC(),
		Aggregate: aggregateID,
		AggKind:   aggregateType,
		Tenant:    tenantID,
	}
}

func (m *EventMeta) EventID() uuid.UUID     { return m.ID }
func (m *EventMeta) EventType() string      { return m.Type }
func (m *EventMeta) OccurredAt() time.Time  { return m.At }
func (m *EventMeta) AggregateID() uuid.UUID { return m.Aggregate }
func (m *EventMeta) AggregateType() string  { return m.AggKind }
func (m *EventMeta) TenantID() uuid.UUID    { return m.Tenant }

// EventPublisher delivers committed events. Implementations must not block
// the caller on slow consumers for longer than the request deadline.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventHandler consumes events from an in-process bus
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants; empty means all
	EventTypes() []string
}
