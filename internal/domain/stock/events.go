package stock

import (
	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types emitted by the stock ledger and orchestrator.
// Payloads carry identifiers and quantities only, never free text from
// clinical or personal records.
const (
	EventMovementRecorded         = "stock.movement.recorded"
	EventInsufficientStockBlocked = "stock.insufficient.blocked"
	EventExpiredBatchBlocked      = "stock.expired.blocked"
	EventIdempotentReplay         = "stock.idempotent.replay"
	EventOperationRolledBack      = "stock.operation.rolledback"
)

// MovementRecordedEvent is emitted after a movement commits
type MovementRecordedEvent struct {
	shared.BaseDomainEvent
	ProductID     uuid.UUID       `json:"product_id"`
	LocationID    uuid.UUID       `json:"location_id"`
	BatchID       *uuid.UUID      `json:"batch_id,omitempty"`
	Kind          MovementKind    `json:"kind"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReferenceType ReferenceType   `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
}

// NewMovementRecordedEvent creates an event for a committed movement
func NewMovementRecordedEvent(m *Movement) *MovementRecordedEvent {
	return &MovementRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventMovementRecorded, "Movement", m.ID),
		ProductID:       m.ProductID,
		LocationID:      m.LocationID,
		BatchID:         m.BatchID,
		Kind:            m.Kind,
		Quantity:        m.Quantity,
		ReferenceType:   m.ReferenceType,
		ReferenceID:     m.ReferenceID,
	}
}

// StockBlockedEvent is emitted when an operation is rejected for
// insufficient or expired-only stock
type StockBlockedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID       `json:"product_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Available  decimal.Decimal `json:"available"`
	Needed     decimal.Decimal `json:"needed"`
	Code       string          `json:"code"`
}

// NewInsufficientStockBlockedEvent creates a blocked event for an
// insufficient-stock rejection
func NewInsufficientStockBlockedEvent(productID, locationID uuid.UUID, available, needed decimal.Decimal) *StockBlockedEvent {
	return &StockBlockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInsufficientStockBlocked, "OnHandRecord", productID),
		ProductID:       productID,
		LocationID:      locationID,
		Available:       available,
		Needed:          needed,
		Code:            ErrCodeInsufficientStock,
	}
}

// NewExpiredBatchBlockedEvent creates a blocked event for an expired-stock
// rejection
func NewExpiredBatchBlockedEvent(productID, locationID uuid.UUID, available, needed decimal.Decimal) *StockBlockedEvent {
	return &StockBlockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventExpiredBatchBlocked, "OnHandRecord", productID),
		ProductID:       productID,
		LocationID:      locationID,
		Available:       available,
		Needed:          needed,
		Code:            ErrCodeExpiredBatchOnly,
	}
}

// IdempotentReplayEvent is emitted when a duplicate request is answered from
// the existing result instead of re-executing
type IdempotentReplayEvent struct {
	shared.BaseDomainEvent
	ReferenceType ReferenceType `json:"reference_type"`
	ReferenceID   string        `json:"reference_id"`
}

// NewIdempotentReplayEvent creates an idempotent-replay event
func NewIdempotentReplayEvent(refType ReferenceType, refID string) *IdempotentReplayEvent {
	return &IdempotentReplayEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventIdempotentReplay, "Sale", uuid.Nil),
		ReferenceType:   refType,
		ReferenceID:     refID,
	}
}

// OperationRolledBackEvent is emitted when a multi-line operation aborts and
// rolls back without partial effects
type OperationRolledBackEvent struct {
	shared.BaseDomainEvent
	ReferenceType ReferenceType `json:"reference_type"`
	ReferenceID   string        `json:"reference_id"`
	Code          string        `json:"code"`
}

// NewOperationRolledBackEvent creates a rollback event
func NewOperationRolledBackEvent(refType ReferenceType, refID, code string) *OperationRolledBackEvent {
	return &OperationRolledBackEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOperationRolledBack, "Sale", uuid.Nil),
		ReferenceType:   refType,
		ReferenceID:     refID,
		Code:            code,
	}
}
