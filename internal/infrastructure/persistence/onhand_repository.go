package persistence

import (
	"context"
	"time"

	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOnHandRepository is the GORM implementation of stock.OnHandRepository
type GormOnHandRepository struct {
	db *gorm.DB
}

// NewGormOnHandRepository creates an on-hand repository
func NewGormOnHandRepository(db *gorm.DB) *GormOnHandRepository {
	return &GormOnHandRepository{db: db}
}

// GetForUpdate loads the on-hand row for a triple under SELECT ... FOR UPDATE,
// creating it lazily if absent. Concurrent movements against the same triple
// serialize on this lock; a lock_timeout expiry maps to LOCK_TIMEOUT.
// Must be called inside a transaction.
func (r *GormOnHandRepository) GetForUpdate(ctx context.Context, productID, locationID, batchID uuid.UUID) (*stock.OnHandRecord, error) {
	record := stock.NewOnHandRecord(productID, locationID, batchID)

	// lazy create keeps first-movement and later-movement paths identical:
	// insert-if-absent, then lock the row
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "location_id"}, {Name: "batch_id"}},
			DoNothing: true,
		}).
		Create(record).Error
	if err != nil {
		return nil, translateError(err)
	}

	query := r.db.WithContext(ctx)
	// SQLite (unit tests) has no row locks; its single-writer model serializes
	// writers anyway
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var locked stock.OnHandRecord
	err = query.
		First(&locked, "product_id = ? AND location_id = ? AND batch_id = ?", productID, locationID, batchID).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &locked, nil
}

// Save persists the updated on-hand quantity
func (r *GormOnHandRepository) Save(ctx context.Context, record *stock.OnHandRecord) error {
	return translateError(r.db.WithContext(ctx).Save(record).Error)
}

// ListAvailable returns on-hand lines with quantity > 0 for a product at a
// location, joined with their batches, in FEFO-friendly order
func (r *GormOnHandRepository) ListAvailable(ctx context.Context, productID, locationID uuid.UUID) ([]stock.OnHandLine, error) {
	var records []*stock.OnHandRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND location_id = ? AND quantity > 0 AND batch_id <> ?",
			productID, locationID, uuid.Nil).
		Find(&records).Error
	if err != nil {
		return nil, translateError(err)
	}
	return r.joinBatches(ctx, records)
}

// ListByProduct returns all on-hand lines of a product across locations
func (r *GormOnHandRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]stock.OnHandLine, error) {
	var records []*stock.OnHandRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Find(&records).Error
	if err != nil {
		return nil, translateError(err)
	}
	return r.joinBatches(ctx, records)
}

// ListExpiringWithStock returns lines holding stock whose batch expires
// before the cutoff
func (r *GormOnHandRepository) ListExpiringWithStock(ctx context.Context, cutoff time.Time, productID *uuid.UUID) ([]stock.OnHandLine, error) {
	query := r.db.WithContext(ctx).
		Model(&stock.OnHandRecord{}).
		Select("stock_on_hand.*").
		Joins("JOIN stock_batches ON stock_batches.id = stock_on_hand.batch_id").
		Where("stock_on_hand.quantity > 0").
		Where("stock_batches.expiry_date IS NOT NULL AND stock_batches.expiry_date < ?", cutoff)
	if productID != nil {
		query = query.Where("stock_on_hand.product_id = ?", *productID)
	}

	var records []*stock.OnHandRecord
	if err := query.Order("stock_batches.expiry_date asc").Find(&records).Error; err != nil {
		return nil, translateError(err)
	}
	return r.joinBatches(ctx, records)
}

// joinBatches resolves each record's batch in one query
func (r *GormOnHandRepository) joinBatches(ctx context.Context, records []*stock.OnHandRecord) ([]stock.OnHandLine, error) {
	ids := make([]uuid.UUID, 0, len(records))
	for _, record := range records {
		if record.BatchID != uuid.Nil {
			ids = append(ids, record.BatchID)
		}
	}

	batches := make(map[uuid.UUID]*stock.Batch, len(ids))
	if len(ids) > 0 {
		var found []*stock.Batch
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
			return nil, translateError(err)
		}
		for _, batch := range found {
			batches[batch.ID] = batch
		}
	}

	lines := make([]stock.OnHandLine, 0, len(records))
	for _, record := range records {
		lines = append(lines, stock.OnHandLine{
			Record: record,
			Batch:  batches[record.BatchID],
		})
	}
	return lines, nil
}
