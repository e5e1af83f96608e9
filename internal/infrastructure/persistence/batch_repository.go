package persistence

import (
	"context"
	"errors"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBatchRepository is the GORM implementation of stock.BatchRepository
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a batch repository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// Create inserts a new batch. The unique index on (product_id, batch_number)
// backs the duplicate-batch guard; a violation maps to DUPLICATE_BATCH.
func (r *GormBatchRepository) Create(ctx context.Context, batch *stock.Batch) error {
	err := translateError(r.db.WithContext(ctx).Create(batch).Error)
	if errors.Is(err, shared.ErrAlreadyExists) {
		return stock.NewDuplicateBatchError(batch.ProductID.String(), batch.BatchNumber)
	}
	return err
}

// Update saves metadata changes to an existing batch
func (r *GormBatchRepository) Update(ctx context.Context, batch *stock.Batch) error {
	return translateError(r.db.WithContext(ctx).Save(batch).Error)
}

// FindByID retrieves a batch by ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Batch, error) {
	var batch stock.Batch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &batch, nil
}

// FindByProductAndNumber retrieves a batch by its per-product unique number
func (r *GormBatchRepository) FindByProductAndNumber(ctx context.Context, productID uuid.UUID, batchNumber string) (*stock.Batch, error) {
	var batch stock.Batch
	err := r.db.WithContext(ctx).
		First(&batch, "product_id = ? AND batch_number = ?", productID, batchNumber).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &batch, nil
}

// ListByProduct returns a product's batches ordered by received date
func (r *GormBatchRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*stock.Batch, error) {
	var batches []*stock.Batch
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("received_at asc, id asc").
		Find(&batches).Error
	if err != nil {
		return nil, translateError(err)
	}
	return batches, nil
}
