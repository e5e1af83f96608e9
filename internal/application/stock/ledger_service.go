package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService owns the write path to the movement log and the on-hand
// projection. All quantity changes in the system go through here.
type LedgerService struct {
	scope     TransactionScope
	publisher shared.EventPublisher
	metrics   MetricsRecorder
	logger    *zap.Logger
}

// NewLedgerService creates a ledger service
func NewLedgerService(scope TransactionScope, publisher shared.EventPublisher, metrics MetricsRecorder, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		scope:     scope,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// RecordMovement validates and books a single movement: the movement row is
// appended and the on-hand row for its triple is updated in one transaction.
func (s *LedgerService) RecordMovement(ctx context.Context, cmd RecordMovementCommand) (*stock.Movement, error) {
	movement, err := stock.NewMovement(cmd.ProductID, cmd.LocationID, cmd.BatchID, cmd.Kind,
		cmd.Quantity, cmd.ReferenceType, cmd.ReferenceID, cmd.Reason, cmd.Actor)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return applyMovement(ctx, repos, movement, cmd.AllowExpired)
	})
	if err != nil {
		s.reportFailure(ctx, cmd.ReferenceType, cmd.ReferenceID, err)
		return nil, err
	}

	s.publishMovements(ctx, movement)
	return movement, nil
}

// Adjust books a manual signed adjustment. Positive quantities book an
// ADJUSTMENT_IN, negative ones an ADJUSTMENT_OUT.
func (s *LedgerService) Adjust(ctx context.Context, cmd AdjustStockCommand) (*stock.Movement, error) {
	if cmd.Quantity.IsZero() {
		return nil, stock.NewInvalidMovementError("adjustment quantity must not be zero")
	}
	if cmd.Reason == "" {
		return nil, stock.NewInvalidMovementError("adjustment requires a reason")
	}

	kind := stock.MovementAdjustmentIn
	if cmd.Quantity.IsNegative() {
		kind = stock.MovementAdjustmentOut
	}

	return s.RecordMovement(ctx, RecordMovementCommand{
		ProductID:     cmd.ProductID,
		LocationID:    cmd.LocationID,
		BatchID:       cmd.BatchID,
		Kind:          kind,
		Quantity:      cmd.Quantity,
		ReferenceType: stock.ReferenceAdjustment,
		ReferenceID:   uuid.NewString(),
		Reason:        cmd.Reason,
		Actor:         cmd.Actor,
		// adjustments may touch expired batches (stocktake corrections)
		AllowExpired: true,
	})
}

// Transfer moves a batch quantity between two locations: an outbound
// TRANSFER_OUT at the source and an inbound TRANSFER_IN at the destination,
// committed together. Either both movements persist or neither does.
func (s *LedgerService) Transfer(ctx context.Context, cmd TransferStockCommand) ([]*stock.Movement, error) {
	if !cmd.Quantity.IsPositive() {
		return nil, stock.NewInvalidMovementError("transfer quantity must be positive")
	}
	if cmd.SourceLocation == cmd.DestLocation {
		return nil, stock.NewInvalidMovementError("transfer source and destination must differ")
	}

	refID := uuid.NewString()
	batchID := cmd.BatchID

	outbound, err := stock.NewMovement(cmd.ProductID, cmd.SourceLocation, &batchID,
		stock.MovementTransferOut, cmd.Quantity.Neg(), stock.ReferenceTransfer, refID, cmd.Reason, cmd.Actor)
	if err != nil {
		return nil, err
	}
	inbound, err := stock.NewMovement(cmd.ProductID, cmd.DestLocation, &batchID,
		stock.MovementTransferIn, cmd.Quantity, stock.ReferenceTransfer, refID, cmd.Reason, cmd.Actor)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := applyMovement(ctx, repos, outbound, cmd.AllowExpired); err != nil {
			return err
		}
		return applyMovement(ctx, repos, inbound, cmd.AllowExpired)
	})
	if err != nil {
		s.reportFailure(ctx, stock.ReferenceTransfer, refID, err)
		return nil, err
	}

	s.publishMovements(ctx, outbound, inbound)
	return []*stock.Movement{outbound, inbound}, nil
}

// publishMovements emits movement events and counters after a commit
func (s *LedgerService) publishMovements(ctx context.Context, movements ...*stock.Movement) {
	for _, m := range movements {
		s.metrics.MovementCreated(ctx, string(m.Kind))
		if err := s.publisher.Publish(ctx, stock.NewMovementRecordedEvent(m)); err != nil {
			s.logger.Warn("failed to publish movement event",
				zap.String("movement_id", m.ID.String()),
				zap.Error(err))
		}
	}
}

// reportFailure counts and logs a failed ledger operation
func (s *LedgerService) reportFailure(ctx context.Context, refType stock.ReferenceType, refID string, err error) {
	reportFailure(ctx, s.publisher, s.metrics, s.logger, refType, refID, err)
}

// applyMovement performs the guarded read-modify-write for one movement:
// active-location check, expired-batch guard for outbound kinds, row-locked
// on-hand update, movement append, and a ledger-vs-projection consistency
// check on the touched triple. Must run inside a transaction.
func applyMovement(ctx context.Context, repos TransactionalRepositories, m *stock.Movement, allowExpired bool) error {
	location, err := repos.Locations().FindByID(ctx, m.LocationID)
	if err != nil {
		return err
	}
	if !location.Active {
		return stock.NewLocationInactiveError(location.Code)
	}

	onHandBatchID := uuid.Nil
	if m.BatchID != nil {
		batch, err := repos.Batches().FindByID(ctx, *m.BatchID)
		if err != nil {
			return err
		}
		if batch.ProductID != m.ProductID {
			return stock.NewInvalidMovementError("batch does not belong to product")
		}
		if m.Kind.IsOutbound() && !allowExpired && batch.IsExpired(time.Now()) {
			return stock.NewExpiredBatchError(batch.BatchNumber)
		}
		onHandBatchID = batch.ID
	}

	record, err := repos.OnHand().GetForUpdate(ctx, m.ProductID, m.LocationID, onHandBatchID)
	if err != nil {
		return err
	}
	if err := record.Apply(m.Quantity); err != nil {
		return err
	}
	if err := repos.Movements().Create(ctx, m); err != nil {
		return err
	}
	if err := repos.OnHand().Save(ctx, record); err != nil {
		return err
	}

	// the projection must equal the running sum of the ledger for this triple
	sum, err := repos.Movements().SumForTriple(ctx, m.ProductID, m.LocationID, onHandBatchID)
	if err != nil {
		return err
	}
	if !sum.Equal(record.Quantity) {
		return stock.NewConsistencyCheckFailedError(fmt.Sprintf(
			"ledger sum %s != on-hand %s for product %s location %s batch %s",
			sum.String(), record.Quantity.String(), m.ProductID, m.LocationID, onHandBatchID))
	}
	return nil
}

// reportFailure classifies a ledger failure into blocked/rollback counters
// and logs it. Consistency failures are fatal: they are logged at error level
// with an escalation marker and must not be retried automatically.
func reportFailure(ctx context.Context, publisher shared.EventPublisher, metrics MetricsRecorder,
	logger *zap.Logger, refType stock.ReferenceType, refID string, err error) {

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error("stock operation failed",
			zap.String("reference_type", string(refType)),
			zap.String("reference_id", refID),
			zap.Error(err))
		return
	}

	switch domainErr.Code {
	case stock.ErrCodeInsufficientStock:
		metrics.InsufficientBlocked(ctx)
	case stock.ErrCodeExpiredBatch, stock.ErrCodeExpiredBatchOnly:
		metrics.ExpiredBlocked(ctx)
	case stock.ErrCodeConsistencyCheckFailed:
		logger.Error("stock consistency check failed, manual investigation required",
			zap.String("reference_type", string(refType)),
			zap.String("reference_id", refID),
			zap.String("code", domainErr.Code),
			zap.String("detail", domainErr.Message))
	}
	metrics.Rollback(ctx)

	if pubErr := publisher.Publish(ctx, stock.NewOperationRolledBackEvent(refType, refID, domainErr.Code)); pubErr != nil {
		logger.Warn("failed to publish rollback event", zap.Error(pubErr))
	}

	logger.Warn("stock operation rolled back",
		zap.String("reference_type", string(refType)),
		zap.String("reference_id", refID),
		zap.String("code", domainErr.Code))
}
