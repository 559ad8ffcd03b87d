package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the identity and audit timestamps carried by every ledger record.
// Timestamps are always UTC.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch bumps UpdatedAt.
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// BaseAggregateRoot is an entity that versions its writes and buffers the
// events they raise until the application layer has committed them.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

// BumpVersion advances Version and touches UpdatedAt
func (a *BaseAggregateRoot) BumpVersion() {
	a.Version++
	a.Touch()
}

func (a *BaseAggregateRoot) RecordEvent(ev DomainEvent) {
	a.pending = append(a.pending, ev)
}

// PendingEvents returns events recorded since the last ClearEvents
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

func (a *BaseAggregateRoot) ClearEvents() {
	a.pending = nil
}

// TenantAggregateRoot is an aggregate owned by exactly one tenant
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID  uuid.UUID
	CreatedBy *uuid.UUID
}

// NewTenantAggregateRoot starts a version 1 aggregate for tenantID
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseAggregateRoot: BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1},
		TenantID:          tenantID,
	}
}

// SetCreatedBy records the acting user; uuid.Nil leaves CreatedBy unset
func (t *TenantAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	if userID == uuid.Nil {
		return
	}
	t.CreatedBy = &userID
}
