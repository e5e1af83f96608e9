package stock

import (
	"context"
	"errors"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchService manages the batch registry
type BatchService struct {
	scope  TransactionScope
	ledger *LedgerService
	logger *zap.Logger
}

// NewBatchService creates a batch service
func NewBatchService(scope TransactionScope, ledger *LedgerService, logger *zap.Logger) *BatchService {
	return &BatchService{
		scope:  scope,
		ledger: ledger,
		logger: logger,
	}
}

// CreateBatch registers a new batch. Fails with DUPLICATE_BATCH if the
// product already has a batch with the same number.
func (s *BatchService) CreateBatch(ctx context.Context, cmd CreateBatchCommand) (*stock.Batch, error) {
	batch, err := stock.NewBatch(cmd.ProductID, cmd.BatchNumber, cmd.ExpiryDate, cmd.ReceivedAt, cmd.Supplier, cmd.QCNotes)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return createBatch(ctx, repos, batch)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch registered",
		zap.String("batch_id", batch.ID.String()),
		zap.String("product_id", batch.ProductID.String()),
		zap.String("batch_number", batch.BatchNumber))
	return batch, nil
}

// ReceiveStock registers a batch and books its inbound purchase movement in
// one transaction. If the batch number already exists for the product, the
// receipt is booked against the existing batch.
func (s *BatchService) ReceiveStock(ctx context.Context, cmd ReceiveStockCommand) (*stock.Batch, *stock.Movement, error) {
	if !cmd.Quantity.IsPositive() {
		return nil, nil, stock.NewInvalidMovementError("received quantity must be positive")
	}

	batch, err := stock.NewBatch(cmd.ProductID, cmd.BatchNumber, cmd.ExpiryDate, cmd.ReceivedAt, cmd.Supplier, cmd.QCNotes)
	if err != nil {
		return nil, nil, err
	}
	refID := cmd.ReferenceID
	if refID == "" {
		refID = uuid.NewString()
	}

	var movement *stock.Movement
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.Batches().FindByProductAndNumber(ctx, cmd.ProductID, cmd.BatchNumber)
		switch {
		case err == nil:
			batch = existing
		case errors.Is(err, shared.ErrNotFound):
			if err := repos.Batches().Create(ctx, batch); err != nil {
				return err
			}
		default:
			return err
		}

		batchID := batch.ID
		movement, err = stock.NewMovement(cmd.ProductID, cmd.LocationID, &batchID,
			stock.MovementPurchase, cmd.Quantity, stock.ReferencePurchase, refID, "", cmd.Actor)
		if err != nil {
			return err
		}
		return applyMovement(ctx, repos, movement, false)
	})
	if err != nil {
		return nil, nil, err
	}

	s.ledger.publishMovements(ctx, movement)
	return batch, movement, nil
}

// UpdateMetadata changes a batch's mutable metadata (supplier, QC notes)
func (s *BatchService) UpdateMetadata(ctx context.Context, batchID uuid.UUID, supplier, qcNotes string) (*stock.Batch, error) {
	var batch *stock.Batch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.Batches().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		found.UpdateMetadata(supplier, qcNotes)
		batch = found
		return repos.Batches().Update(ctx, found)
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// createBatch inserts a batch after checking per-product number uniqueness
func createBatch(ctx context.Context, repos TransactionalRepositories, batch *stock.Batch) error {
	_, err := repos.Batches().FindByProductAndNumber(ctx, batch.ProductID, batch.BatchNumber)
	switch {
	case err == nil:
		return stock.NewDuplicateBatchError(batch.ProductID.String(), batch.BatchNumber)
	case errors.Is(err, shared.ErrNotFound):
		// proceed
	default:
		return err
	}
	return repos.Batches().Create(ctx, batch)
}
