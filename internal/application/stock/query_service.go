package stock

import (
	"context"
	"time"

	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QueryService is the read-only surface over batches, movements and the
// on-hand projection
type QueryService struct {
	scope TransactionScope
}

// NewQueryService creates a query service
func NewQueryService(scope TransactionScope) *QueryService {
	return &QueryService{scope: scope}
}

// ListBatches returns all batches of a product
func (s *QueryService) ListBatches(ctx context.Context, productID uuid.UUID) ([]*stock.Batch, error) {
	var batches []*stock.Batch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batches, err = repos.Batches().ListByProduct(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// GetBatch returns one batch by ID
func (s *QueryService) GetBatch(ctx context.Context, id uuid.UUID) (*stock.Batch, error) {
	var batch *stock.Batch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// ListMovements returns movements matching the filter with a total count for
// pagination
func (s *QueryService) ListMovements(ctx context.Context, filter stock.MovementFilter) ([]*stock.Movement, int64, error) {
	var movements []*stock.Movement
	var total int64
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		movements, total, err = repos.Movements().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// GetSaleStockState derives a sale's stock state from its ledger movements
func (s *QueryService) GetSaleStockState(ctx context.Context, saleID string) (stock.SaleStockState, []*stock.Movement, error) {
	var state stock.SaleStockState
	var movements []*stock.Movement
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		consumptions, err := repos.Movements().FindByReference(ctx, stock.ReferenceSale, saleID)
		if err != nil {
			return err
		}
		refunds, err := repos.Movements().FindByReference(ctx, stock.ReferenceRefund, saleID)
		if err != nil {
			return err
		}
		state = stock.DeriveSaleStockState(consumptions, refunds)
		movements = append(consumptions, refunds...)
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return state, movements, nil
}

// GetOnHandSummary aggregates a product's stock position: total quantity,
// per-location and per-batch breakdowns, and the expired-with-stock list
func (s *QueryService) GetOnHandSummary(ctx context.Context, productID uuid.UUID) (*OnHandSummary, error) {
	now := time.Now()
	summary := &OnHandSummary{
		ProductID:        productID,
		Total:            decimal.Zero,
		ByLocation:       []OnHandByLocation{},
		ByBatch:          []OnHandByBatch{},
		ExpiredWithStock: []OnHandByBatch{},
	}

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lines, err := repos.OnHand().ListByProduct(ctx, productID)
		if err != nil {
			return err
		}

		byLocation := make(map[uuid.UUID]decimal.Decimal)
		byBatch := make(map[uuid.UUID]*OnHandByBatch)
		for _, line := range lines {
			if !line.Record.Quantity.IsPositive() {
				continue
			}
			summary.Total = summary.Total.Add(line.Record.Quantity)
			byLocation[line.Record.LocationID] = byLocation[line.Record.LocationID].Add(line.Record.Quantity)

			if line.Batch == nil {
				continue
			}
			entry, ok := byBatch[line.Batch.ID]
			if !ok {
				entry = &OnHandByBatch{
					BatchID:     line.Batch.ID,
					BatchNumber: line.Batch.BatchNumber,
					ExpiryDate:  line.Batch.ExpiryDate,
					Expired:     line.Batch.IsExpired(now),
					Quantity:    decimal.Zero,
				}
				byBatch[line.Batch.ID] = entry
			}
			entry.Quantity = entry.Quantity.Add(line.Record.Quantity)
		}

		for locationID, quantity := range byLocation {
			summary.ByLocation = append(summary.ByLocation, OnHandByLocation{
				LocationID: locationID,
				Quantity:   quantity,
			})
		}
		for _, entry := range byBatch {
			summary.ByBatch = append(summary.ByBatch, *entry)
			if entry.Expired {
				summary.ExpiredWithStock = append(summary.ExpiredWithStock, *entry)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ListExpiring returns batches that still hold stock and expire within the
// given number of days. days = 0 lists already-expired stock only. The cutoff
// has date granularity: a batch expiring today is not expired and shows up
// only for days >= 1.
func (s *QueryService) ListExpiring(ctx context.Context, days int, productID *uuid.UUID) ([]ExpiringBatch, error) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, days)

	var result []ExpiringBatch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lines, err := repos.OnHand().ListExpiringWithStock(ctx, cutoff, productID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if line.Batch == nil || line.Batch.ExpiryDate == nil {
				continue
			}
			result = append(result, ExpiringBatch{
				ProductID:   line.Record.ProductID,
				LocationID:  line.Record.LocationID,
				BatchID:     line.Batch.ID,
				BatchNumber: line.Batch.BatchNumber,
				ExpiryDate:  *line.Batch.ExpiryDate,
				Quantity:    line.Record.Quantity,
				DaysLeft:    line.Batch.DaysUntilExpiry(now),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
