// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// GormStockMetricsProvider implements StockMetricsProvider using GORM.
// It queries the projection tables directly for aggregated gauge values.
type GormStockMetricsProvider struct {
	db *gorm.DB
}

// NewGormStockMetricsProvider creates a new GormStockMetricsProvider.
func NewGormStockMetricsProvider(db *gorm.DB) *GormStockMetricsProvider {
	return &GormStockMetricsProvider{db: db}
}

// ExpiredWithStockCount returns how many batches are past expiry while still
// holding a positive on-hand quantity, counted across all locations. Expiry
// has date granularity, so batches expiring today are not counted.
func (p *GormStockMetricsProvider) ExpiredWithStockCount(ctx context.Context) (int64, error) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var count int64
	err := p.db.WithContext(ctx).
		Table("stock_on_hand").
		Joins("JOIN stock_batches ON stock_batches.id = stock_on_hand.batch_id").
		Where("stock_on_hand.quantity > 0").
		Where("stock_batches.expiry_date IS NOT NULL AND stock_batches.expiry_date < ?", today).
		Distinct("stock_on_hand.batch_id").
		Count(&count).Error

	return count, err
}
