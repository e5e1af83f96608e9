// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// StockMetrics provides business metrics for the stock ledger.
// It implements the application layer's MetricsRecorder and additionally runs
// a periodic collector for the expired-with-stock gauge.
type StockMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	movementCreatedTotal     *Counter
	insufficientBlockedTotal *Counter
	expiredBlockedTotal      *Counter
	idempotentReplayTotal    *Counter
	rollbackTotal            *Counter

	// Gauge metrics (point-in-time values)
	expiredWithStock *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	provider StockMetricsProvider
}

// StockMetricsProvider supplies ledger state for periodic gauge collection.
// The interface keeps the telemetry layer from depending on the stock
// repositories directly.
type StockMetricsProvider interface {
	// ExpiredWithStockCount returns how many batches are past expiry while
	// still holding a positive on-hand quantity.
	ExpiredWithStockCount(ctx context.Context) (int64, error)
}

// StockMetricsConfig holds configuration for stock metrics.
type StockMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	Provider        StockMetricsProvider
}

// NewStockMetrics creates a new StockMetrics instance.
func NewStockMetrics(cfg StockMetricsConfig) (*StockMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &StockMetrics{
		meter:    cfg.Meter,
		logger:   logger,
		stopChan: make(chan struct{}),
		provider: cfg.Provider,
	}

	var err error

	sm.movementCreatedTotal, err = NewCounter(
		cfg.Meter,
		"stock_movement_created_total",
		"Total number of stock movements recorded",
		"{movements}",
	)
	if err != nil {
		return nil, err
	}

	sm.insufficientBlockedTotal, err = NewCounter(
		cfg.Meter,
		"stock_insufficient_blocked_total",
		"Total number of operations blocked by insufficient stock",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	sm.expiredBlockedTotal, err = NewCounter(
		cfg.Meter,
		"stock_expired_blocked_total",
		"Total number of operations blocked by expired stock",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	sm.idempotentReplayTotal, err = NewCounter(
		cfg.Meter,
		"stock_idempotent_replay_total",
		"Total number of idempotent replays served from prior results",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	sm.rollbackTotal, err = NewCounter(
		cfg.Meter,
		"stock_rollback_total",
		"Total number of stock transactions rolled back",
		"{transactions}",
	)
	if err != nil {
		return nil, err
	}

	sm.expiredWithStock, err = NewGauge(
		cfg.Meter,
		"stock_expired_with_stock",
		"Number of expired batches still holding positive on-hand stock",
		"{batches}",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// =============================================================================
// MetricsRecorder implementation
// =============================================================================

// MovementCreated records a committed stock movement, labeled by kind.
func (sm *StockMetrics) MovementCreated(ctx context.Context, kind string) {
	sm.movementCreatedTotal.Inc(ctx, AttrMovementKind.String(kind))
}

// InsufficientBlocked records an operation rejected for insufficient stock.
func (sm *StockMetrics) InsufficientBlocked(ctx context.Context) {
	sm.insufficientBlockedTotal.Inc(ctx)
}

// ExpiredBlocked records an operation rejected because only expired stock remained.
func (sm *StockMetrics) ExpiredBlocked(ctx context.Context) {
	sm.expiredBlockedTotal.Inc(ctx)
}

// IdempotentReplay records a request answered from a previously committed result.
func (sm *StockMetrics) IdempotentReplay(ctx context.Context) {
	sm.idempotentReplayTotal.Inc(ctx)
}

// Rollback records a rolled-back stock transaction.
func (sm *StockMetrics) Rollback(ctx context.Context) {
	sm.rollbackTotal.Inc(ctx)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of the expired-with-stock
// gauge. Non-blocking; use Stop() to stop collection.
func (sm *StockMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	sm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go sm.runPeriodicCollection(ctx, interval)
	})
}

func (sm *StockMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sm.collectExpiredWithStock(ctx)

	for {
		select {
		case <-sm.stopChan:
			sm.logger.Info("Stopping periodic stock metrics collection")
			return
		case <-ctx.Done():
			sm.logger.Info("Context cancelled, stopping periodic stock metrics collection")
			return
		case <-ticker.C:
			sm.collectExpiredWithStock(ctx)
		}
	}
}

func (sm *StockMetrics) collectExpiredWithStock(ctx context.Context) {
	if sm.provider == nil {
		sm.logger.Debug("No stock metrics provider configured, skipping gauge collection")
		return
	}

	count, err := sm.provider.ExpiredWithStockCount(ctx)
	if err != nil {
		sm.logger.Warn("Failed to count expired batches with stock", zap.Error(err))
		return
	}
	sm.expiredWithStock.Record(ctx, count)
}

// Stop stops the periodic collection.
func (sm *StockMetrics) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewStockMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
