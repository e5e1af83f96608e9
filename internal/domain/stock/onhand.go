package stock

import (
	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OnHandRecord is the materialized current quantity for a unique
// (product, location, batch) triple. The quantity is never negative; this is
// enforced here before commit and by a persisted CHECK constraint in the
// database. Rows are created lazily on the first movement for a triple.
// Batchless inbound movements aggregate under BatchID = uuid.Nil; such rows
// never participate in FEFO allocation.
type OnHandRecord struct {
	shared.BaseEntity
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_onhand_triple,priority:1"`
	LocationID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_onhand_triple,priority:2"`
	BatchID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_onhand_triple,priority:3"`
	Quantity   decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
}

// TableName returns the database table name
func (OnHandRecord) TableName() string {
	return "stock_on_hand"
}

// NewOnHandRecord creates an empty on-hand row for a triple
func NewOnHandRecord(productID, locationID, batchID uuid.UUID) *OnHandRecord {
	return &OnHandRecord{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		LocationID: locationID,
		BatchID:    batchID,
		Quantity:   decimal.Zero,
	}
}

// Apply adds a signed movement quantity to the on-hand balance.
// Fails with InsufficientStockError if the result would be negative,
// leaving the record unchanged.
func (r *OnHandRecord) Apply(delta decimal.Decimal) error {
	next := r.Quantity.Add(delta)
	if next.IsNegative() {
		return NewInsufficientStockError(r.Quantity, delta.Neg())
	}
	r.Quantity = next
	return nil
}
