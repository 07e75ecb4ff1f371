// Package entity provides shared entity bases and the lifecycle tag.
package entity

import (
	"context"
	"time"

	"provender/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Lifecycle is the uniform soft-delete tag carried by every entity.
// Queries that must exclude disabled records filter on this one column
// instead of repeating ad hoc boolean conditions.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "active"
	LifecycleDisabled Lifecycle = "disabled"
)

// IsActive reports whether the entity is live.
func (l Lifecycle) IsActive() bool {
	return l == LifecycleActive || l == ""
}

// BaseEntity contains common fields for all entities.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Lifecycle marks soft-disabled entities. Never hard-deleted.
	Lifecycle Lifecycle `db:"lifecycle" json:"lifecycle"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:        id.New(),
		Lifecycle: LifecycleActive,
		Version:   1,
	}
}

// Touch increments version (for optimistic locking).
func (b *BaseEntity) Touch() {
	b.Version++
}

// Disable soft-disables the entity.
func (b *BaseEntity) Disable() {
	b.Lifecycle = LifecycleDisabled
}

// Enable clears the disabled tag.
func (b *BaseEntity) Enable() {
	b.Lifecycle = LifecycleActive
}

// IsDisabled reports the soft-delete state.
func (b *BaseEntity) IsDisabled() bool {
	return !b.Lifecycle.IsActive()
}

// BaseRecord extends BaseEntity with audit timestamps for mutable records.
type BaseRecord struct {
	BaseEntity

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseRecord creates a new BaseRecord with generated ID and timestamps.
func NewBaseRecord() BaseRecord {
	now := time.Now().UTC()
	return BaseRecord{
		BaseEntity: NewBaseEntity(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Touch updates the UpdatedAt timestamp and increments version.
func (b *BaseRecord) Touch() {
	b.UpdatedAt = time.Now().UTC()
	b.BaseEntity.Touch()
}
