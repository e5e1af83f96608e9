package persistence

import (
	"context"

	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormMovementRepository is the GORM implementation of stock.MovementRepository.
// The movement log is append-only; updates and deletes are not implemented.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a movement repository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Create appends a movement to the log
func (r *GormMovementRepository) Create(ctx context.Context, movement *stock.Movement) error {
	return translateError(r.db.WithContext(ctx).Create(movement).Error)
}

// LockReference takes a transaction-scoped advisory lock on a business event
// so concurrent deliveries of the same event serialize instead of racing the
// replay check. The lock waits like any row lock, so a blocked transaction can
// still hit lock_timeout and surface LOCK_TIMEOUT. SQLite has a single writer
// and needs no lock.
func (r *GormMovementRepository) LockReference(ctx context.Context, refType stock.ReferenceType, refID string) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	key := string(refType) + ":" + refID
	return translateError(r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error)
}

// FindByReference returns movements linked to a business event in creation order
func (r *GormMovementRepository) FindByReference(ctx context.Context, refType stock.ReferenceType, refID string) ([]*stock.Movement, error) {
	var movements []*stock.Movement
	err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("recorded_at asc, id asc").
		Find(&movements).Error
	if err != nil {
		return nil, translateError(err)
	}
	return movements, nil
}

// FindByIdempotencyKey returns movements created by a keyed request
func (r *GormMovementRepository) FindByIdempotencyKey(ctx context.Context, key string) ([]*stock.Movement, error) {
	var movements []*stock.Movement
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		Order("recorded_at asc, id asc").
		Find(&movements).Error
	if err != nil {
		return nil, translateError(err)
	}
	return movements, nil
}

// List returns movements matching the filter, newest first, with the total
// count for pagination
func (r *GormMovementRepository) List(ctx context.Context, filter stock.MovementFilter) ([]*stock.Movement, int64, error) {
	query := r.db.WithContext(ctx).Model(&stock.Movement{})

	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.ReferenceType != nil {
		query = query.Where("reference_type = ?", *filter.ReferenceType)
	}
	if filter.ReferenceID != "" {
		query = query.Where("reference_id = ?", filter.ReferenceID)
	}
	if filter.From != nil {
		query = query.Where("recorded_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("recorded_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	var movements []*stock.Movement
	err := query.
		Order("recorded_at desc, id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&movements).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	return movements, total, nil
}

// SumForTriple returns the running sum of signed movement quantities for one
// (product, location, batch) triple. Batchless movements sum under the nil
// batch key.
func (r *GormMovementRepository) SumForTriple(ctx context.Context, productID, locationID, batchID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	query := r.db.WithContext(ctx).
		Model(&stock.Movement{}).
		Select("COALESCE(SUM(quantity), 0) as total").
		Where("product_id = ? AND location_id = ?", productID, locationID)
	if batchID == uuid.Nil {
		query = query.Where("batch_id IS NULL")
	} else {
		query = query.Where("batch_id = ?", batchID)
	}
	if err := query.Scan(&result).Error; err != nil {
		return decimal.Zero, translateError(err)
	}
	return result.Total, nil
}
