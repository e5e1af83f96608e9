package stock

import (
	"time"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementKind identifies the business nature of a stock movement
type MovementKind string

const (
	// Inbound kinds (positive quantity)
	MovementPurchase     MovementKind = "PURCHASE"
	MovementRefund       MovementKind = "REFUND"
	MovementAdjustmentIn MovementKind = "ADJUSTMENT_IN"
	MovementTransferIn   MovementKind = "TRANSFER_IN"

	// Outbound kinds (negative quantity)
	MovementSale          MovementKind = "SALE"
	MovementWaste         MovementKind = "WASTE"
	MovementAdjustmentOut MovementKind = "ADJUSTMENT_OUT"
	MovementTransferOut   MovementKind = "TRANSFER_OUT"
)

// IsValid checks if the movement kind is valid
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementPurchase, MovementRefund, MovementAdjustmentIn, MovementTransferIn,
		MovementSale, MovementWaste, MovementAdjustmentOut, MovementTransferOut:
		return true
	}
	return false
}

// IsInbound reports whether the kind increases stock
func (k MovementKind) IsInbound() bool {
	switch k {
	case MovementPurchase, MovementRefund, MovementAdjustmentIn, MovementTransferIn:
		return true
	}
	return false
}

// IsOutbound reports whether the kind decreases stock
func (k MovementKind) IsOutbound() bool {
	switch k {
	case MovementSale, MovementWaste, MovementAdjustmentOut, MovementTransferOut:
		return true
	}
	return false
}

// ReferenceType links a movement to the business event that caused it
type ReferenceType string

const (
	ReferenceSale       ReferenceType = "SALE"
	ReferenceRefund     ReferenceType = "REFUND"
	ReferencePurchase   ReferenceType = "PURCHASE"
	ReferenceAdjustment ReferenceType = "ADJUSTMENT"
	ReferenceTransfer   ReferenceType = "TRANSFER"
)

// IsValid checks if the reference type is valid
func (t ReferenceType) IsValid() bool {
	switch t {
	case ReferenceSale, ReferenceRefund, ReferencePurchase, ReferenceAdjustment, ReferenceTransfer:
		return true
	}
	return false
}

// Movement is an immutable, signed quantity change against a
// (product, location, batch) triple. Movements form the audit trail and are
// never updated or deleted after creation. Inbound kinds carry a positive
// quantity, outbound kinds a negative one; the quantity is never zero.
type Movement struct {
	shared.BaseEntity
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_product_location"`
	LocationID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_product_location"`
	BatchID       *uuid.UUID      `gorm:"type:uuid;index"`
	Kind          MovementKind    `gorm:"type:varchar(20);not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	ReferenceType ReferenceType   `gorm:"type:varchar(20);not null;index:idx_movement_reference"`
	ReferenceID   string          `gorm:"type:varchar(100);not null;index:idx_movement_reference"`
	Reason        string          `gorm:"type:text"`
	Actor         string          `gorm:"type:varchar(100);not null"`
	// IdempotencyKey is set on movements created by keyed requests (refunds)
	// so a replayed request can return exactly the movements it created.
	IdempotencyKey string    `gorm:"type:varchar(100);index"`
	RecordedAt     time.Time `gorm:"not null;index"`
}

// TableName returns the database table name
func (Movement) TableName() string {
	return "stock_movements"
}

// NewMovement creates a validated movement. The quantity is signed: it must
// be positive for inbound kinds and negative for outbound kinds. Outbound
// kinds require a batch.
func NewMovement(productID, locationID uuid.UUID, batchID *uuid.UUID, kind MovementKind,
	quantity decimal.Decimal, refType ReferenceType, refID, reason, actor string) (*Movement, error) {

	if productID == uuid.Nil {
		return nil, NewInvalidMovementError("product ID is required")
	}
	if locationID == uuid.Nil {
		return nil, NewInvalidMovementError("location ID is required")
	}
	if !kind.IsValid() {
		return nil, NewInvalidMovementError("unknown movement kind " + string(kind))
	}
	if quantity.IsZero() {
		return nil, NewInvalidMovementError("quantity must not be zero")
	}
	if kind.IsInbound() && quantity.IsNegative() {
		return nil, NewInvalidMovementError("inbound kind " + string(kind) + " requires positive quantity")
	}
	if kind.IsOutbound() && quantity.IsPositive() {
		return nil, NewInvalidMovementError("outbound kind " + string(kind) + " requires negative quantity")
	}
	if kind.IsOutbound() && (batchID == nil || *batchID == uuid.Nil) {
		return nil, NewBatchRequiredError(productID.String())
	}
	if !refType.IsValid() {
		return nil, NewInvalidMovementError("unknown reference type " + string(refType))
	}
	if refID == "" {
		return nil, NewInvalidMovementError("reference ID is required")
	}
	if actor == "" {
		return nil, NewInvalidMovementError("actor is required")
	}

	return &Movement{
		BaseEntity:    shared.NewBaseEntity(),
		ProductID:     productID,
		LocationID:    locationID,
		BatchID:       batchID,
		Kind:          kind,
		Quantity:      quantity,
		ReferenceType: refType,
		ReferenceID:   refID,
		Reason:        reason,
		Actor:         actor,
		RecordedAt:    time.Now(),
	}, nil
}

// WithIdempotencyKey tags the movement with the request's idempotency key
func (m *Movement) WithIdempotencyKey(key string) *Movement {
	m.IdempotencyKey = key
	return m
}

// Reverse builds an equal-and-opposite movement against the same triple,
// used for refund reversals. The quantity may be a partial portion of the
// original; it must be positive and no larger than the original magnitude.
func (m *Movement) Reverse(quantity decimal.Decimal, refType ReferenceType, refID, reason, actor string) (*Movement, error) {
	if !m.Kind.IsOutbound() {
		return nil, NewInvalidMovementError("only outbound movements can be reversed")
	}
	if quantity.IsNegative() || quantity.IsZero() {
		return nil, NewInvalidMovementError("reversal quantity must be positive")
	}
	if quantity.GreaterThan(m.Quantity.Neg()) {
		return nil, NewInvalidMovementError("reversal quantity exceeds original movement")
	}
	return NewMovement(m.ProductID, m.LocationID, m.BatchID, MovementRefund,
		quantity, refType, refID, reason, actor)
}
