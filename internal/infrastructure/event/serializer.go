package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Envelope is the wire form of a domain event. Payload is the event's own JSON.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// EventSerializer converts domain events to and from envelopes
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type
}

// NewEventSerializer creates a serializer with no registered types
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{registry: make(map[string]reflect.Type)}
}

// NewLedgerEventSerializer creates a serializer that knows every ledger event
func NewLedgerEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register(ledger.EventTypeAccountOpened, &ledger.AccountOpenedEvent{})
	s.Register(ledger.EventTypeAccountClosed, &ledger.AccountClosedEvent{})
	s.Register(ledger.EventTypeAccountReopened, &ledger.AccountReopenedEvent{})
	s.Register(ledger.EventTypeLedgerEntryPosted, &ledger.LedgerEntryPostedEvent{})
	s.Register(ledger.EventTypeLedgerEntryUpdated, &ledger.LedgerEntryUpdatedEvent{})
	s.Register(ledger.EventTypeLedgerEntryDeleted, &ledger.LedgerEntryDeletedEvent{})
	s.Register(ledger.EventTypeAccountRecomputed, &ledger.AccountRecomputedEvent{})
	return s
}

// Register maps eventType to the concrete type of instance
func (s *EventSerializer) Register(eventType string, instance shared.DomainEvent) {
	t := reflect.TypeOf(instance)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s.mu.Lock()
	s.registry[eventType] = t
	s.mu.Unlock()
}

// IsRegistered reports whether eventType can be decoded
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// Serialize encodes ev as an Envelope
func (s *EventSerializer) Serialize(ev shared.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", ev.EventType(), err)
	}
	return json.Marshal(Envelope{
		EventID:       ev.EventID(),
		EventType:     ev.EventType(),
		AggregateType: ev.AggregateType(),
		AggregateID:   ev.AggregateID(),
		TenantID:      ev.TenantID(),
		OccurredAt:    ev.OccurredAt().UTC(),
		Payload:       payload,
	})
}

// Deserialize decodes an Envelope back into its registered event type
func (s *EventSerializer) Deserialize(data []byte) (shared.DomainEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	s.mu.RLock()
	t, ok := s.registry[env.EventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", env.EventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(env.Payload, ptr); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", env.EventType, err)
	}
	ev, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("%s does not implement DomainEvent", t)
	}
	return ev, nil
}
