package stock

import (
	"strings"
	"time"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Batch is a lot of a product received at a point in time.
// The batch number is unique per product, not globally. A batch with a nil
// expiry date never expires. Batches referenced by movements or on-hand rows
// are never deleted; only metadata may change after creation.
type Batch struct {
	shared.BaseEntity
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_product_batch_number,priority:1;index"`
	BatchNumber string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_product_batch_number,priority:2"`
	ExpiryDate  *time.Time `gorm:"type:date"`
	ReceivedAt  time.Time  `gorm:"not null"`
	Supplier    string     `gorm:"type:varchar(200)"`
	QCNotes     string     `gorm:"type:text"`
}

// TableName returns the database table name
func (Batch) TableName() string {
	return "stock_batches"
}

// NewBatch creates a new batch for a product
func NewBatch(productID uuid.UUID, batchNumber string, expiryDate *time.Time, receivedAt time.Time, supplier, qcNotes string) (*Batch, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "product ID is required")
	}
	batchNumber = strings.TrimSpace(batchNumber)
	if batchNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "batch number is required")
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	return &Batch{
		BaseEntity:  shared.NewBaseEntity(),
		ProductID:   productID,
		BatchNumber: batchNumber,
		ExpiryDate:  expiryDate,
		ReceivedAt:  receivedAt,
		Supplier:    supplier,
		QCNotes:     qcNotes,
	}, nil
}

// dateOf truncates a point in time to its calendar date
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsExpired reports whether the batch is expired as of the given time.
// Expiry has date granularity: a batch is expired only when its expiry date
// is strictly before asOf's date, so a batch expiring today is usable all
// day. A batch without an expiry date never expires.
func (b *Batch) IsExpired(asOf time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return dateOf(*b.ExpiryDate).Before(dateOf(asOf))
}

// DaysUntilExpiry returns the number of whole days until expiry as of the
// given time. Returns -1 if the batch has no expiry date. A negative value
// other than -1 is never returned; expired batches return 0.
func (b *Batch) DaysUntilExpiry(asOf time.Time) int {
	if b.ExpiryDate == nil {
		return -1
	}
	days := int(dateOf(*b.ExpiryDate).Sub(dateOf(asOf)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// UpdateMetadata updates the mutable metadata fields.
// Identity fields (product, batch number, expiry, received date) are immutable.
func (b *Batch) UpdateMetadata(supplier, qcNotes string) {
	b.Supplier = supplier
	b.QCNotes = qcNotes
}
