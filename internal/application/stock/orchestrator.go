package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Orchestrator bridges the sale lifecycle to ledger movements. A sale
// transitioning to PAID consumes stock via FEFO allocation; a refund request
// reverses prior consumption. Both paths are idempotent: a repeated
// consumption for the same sale and a refund replaying a known idempotency
// key return the previously created movements unchanged.
type Orchestrator struct {
	scope       TransactionScope
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	publisher   shared.EventPublisher
	metrics     MetricsRecorder
	logger      *zap.Logger
}

// NewOrchestrator creates a consumption/refund orchestrator
func NewOrchestrator(scope TransactionScope, idempotency shared.IdempotencyStore,
	idemConfig shared.IdempotencyConfig, publisher shared.EventPublisher,
	metrics MetricsRecorder, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		scope:       scope,
		idempotency: idempotency,
		idemConfig:  idemConfig,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
	}
}

// ConsumeForSale allocates and books outbound movements for every line of a
// paid sale inside one transaction. Either all lines commit or none do. If
// movements already exist for the sale reference, they are returned unchanged
// instead of consuming twice.
func (o *Orchestrator) ConsumeForSale(ctx context.Context, cmd ConsumeForSaleCommand) (*ConsumeResult, error) {
	if cmd.SaleID == "" {
		return nil, stock.NewInvalidMovementError("sale ID is required")
	}
	if len(cmd.Lines) == 0 {
		return nil, stock.NewInvalidMovementError("sale has no lines to consume")
	}
	for _, line := range cmd.Lines {
		if !line.Quantity.IsPositive() {
			return nil, stock.NewInvalidMovementError("line quantity must be positive")
		}
	}

	var created []*stock.Movement
	replayed := false

	err := o.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		// serialize concurrent deliveries of the same sale so the replay
		// check cannot race: the loser blocks here until the winner commits,
		// then sees the winner's movements
		if err := repos.Movements().LockReference(ctx, stock.ReferenceSale, cmd.SaleID); err != nil {
			return err
		}

		existing, err := repos.Movements().FindByReference(ctx, stock.ReferenceSale, cmd.SaleID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			created = existing
			replayed = true
			return nil
		}

		now := time.Now()
		for _, line := range cmd.Lines {
			lineCreated, err := o.consumeLine(ctx, repos, cmd, line, now)
			if err != nil {
				return err
			}
			created = append(created, lineCreated...)
		}
		return verifyConsumption(created, cmd.Lines)
	})
	if err != nil {
		o.reportFailure(ctx, stock.ReferenceSale, cmd.SaleID, err)
		return nil, err
	}

	if replayed {
		o.reportReplay(ctx, stock.ReferenceSale, cmd.SaleID)
	} else {
		o.publishMovements(ctx, created)
	}

	return &ConsumeResult{
		Movements: created,
		Replayed:  replayed,
		State:     stock.DeriveSaleStockState(created, nil),
	}, nil
}

// consumeLine plans one sale line with FEFO and books one movement per
// allocated batch. Lines for the same product within a sale see each other's
// writes because they run in the same transaction, so joint planning across
// lines needs no extra coordination.
func (o *Orchestrator) consumeLine(ctx context.Context, repos TransactionalRepositories,
	cmd ConsumeForSaleCommand, line SaleLine, now time.Time) ([]*stock.Movement, error) {

	onHand, err := repos.OnHand().ListAvailable(ctx, line.ProductID, cmd.LocationID)
	if err != nil {
		return nil, err
	}
	rows := make([]stock.BatchStock, 0, len(onHand))
	for _, l := range onHand {
		rows = append(rows, stock.BatchStock{Batch: l.Batch, Available: l.Record.Quantity})
	}

	plan, err := stock.AllocateFEFO(rows, line.Quantity, now, cmd.AllowExpired)
	if err != nil {
		o.publishBlocked(ctx, cmd, line, err)
		return nil, err
	}

	created := make([]*stock.Movement, 0, len(plan))
	for _, alloc := range plan {
		batchID := alloc.Batch.ID
		movement, err := stock.NewMovement(line.ProductID, cmd.LocationID, &batchID,
			stock.MovementSale, alloc.Quantity.Neg(), stock.ReferenceSale, cmd.SaleID, "", cmd.Actor)
		if err != nil {
			return nil, err
		}
		// the plan is advisory: applyMovement re-validates against the live
		// row under the lock and fails the whole transaction on a stale read
		if err := applyMovement(ctx, repos, movement, cmd.AllowExpired); err != nil {
			return nil, err
		}
		created = append(created, movement)
	}
	return created, nil
}

// RefundStock reverses consumed stock for a sale, either fully or for the
// given lines. A request replaying a known idempotency key returns the
// movements created by the first request instead of refunding again.
func (o *Orchestrator) RefundStock(ctx context.Context, cmd RefundStockCommand) (*RefundResult, error) {
	if cmd.SaleID == "" {
		return nil, stock.NewInvalidMovementError("sale ID is required")
	}
	switch cmd.Strategy {
	case RefundFull:
	case RefundPartial:
		if len(cmd.Lines) == 0 {
			return nil, stock.NewInvalidMovementError("partial refund requires lines")
		}
		for _, line := range cmd.Lines {
			if !line.Quantity.IsPositive() {
				return nil, stock.NewInvalidMovementError("refund line quantity must be positive")
			}
		}
	default:
		return nil, stock.NewInvalidMovementError("unknown refund strategy " + string(cmd.Strategy))
	}

	var created []*stock.Movement
	var state stock.SaleStockState
	replayed := false

	// fast path: the idempotency store answers replays without taking locks
	if cmd.IdempotencyKey != "" && o.idemConfig.Enabled {
		processed, err := o.idempotency.IsProcessed(ctx, cmd.IdempotencyKey)
		if err != nil {
			o.logger.Warn("idempotency store lookup failed, falling back to ledger",
				zap.String("key", cmd.IdempotencyKey), zap.Error(err))
		} else if processed {
			readErr := o.scope.Execute(ctx, func(repos TransactionalRepositories) error {
				keyed, err := repos.Movements().FindByIdempotencyKey(ctx, cmd.IdempotencyKey)
				if err != nil {
					return err
				}
				created = keyed
				return nil
			})
			if readErr != nil {
				return nil, readErr
			}
			o.reportReplay(ctx, stock.ReferenceRefund, cmd.SaleID)
			return &RefundResult{Movements: created, Replayed: true, State: o.stateAfterReplay(ctx, cmd.SaleID)}, nil
		}
	}

	err := o.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		// serialize concurrent refunds of the same sale; the over-refund
		// guard reads the ledger and must not race another refund's writes
		if err := repos.Movements().LockReference(ctx, stock.ReferenceRefund, cmd.SaleID); err != nil {
			return err
		}

		// replay guard: the ledger itself remembers keyed refunds, so the
		// guard holds even if the idempotency store lost its state
		if cmd.IdempotencyKey != "" {
			keyed, err := repos.Movements().FindByIdempotencyKey(ctx, cmd.IdempotencyKey)
			if err != nil {
				return err
			}
			if len(keyed) > 0 {
				created = keyed
				replayed = true
				return nil
			}
		}

		consumptions, err := repos.Movements().FindByReference(ctx, stock.ReferenceSale, cmd.SaleID)
		if err != nil {
			return err
		}
		refunds, err := repos.Movements().FindByReference(ctx, stock.ReferenceRefund, cmd.SaleID)
		if err != nil {
			return err
		}
		if stock.DeriveSaleStockState(consumptions, refunds) == stock.SaleNotConsumed {
			return stock.NewInvalidMovementError("sale " + cmd.SaleID + " has no consumed stock to refund")
		}

		lines := cmd.Lines
		if cmd.Strategy == RefundFull {
			lines = remainingLines(consumptions, refunds)
			if len(lines) == 0 {
				return stock.NewOverRefundError(cmd.SaleID, decimal.Zero, decimal.Zero, decimal.Zero)
			}
		}

		for _, line := range lines {
			lineCreated, err := refundLine(ctx, repos, cmd, consumptions, refunds, line)
			if err != nil {
				return err
			}
			created = append(created, lineCreated...)
		}

		if err := verifyRefund(created, lines); err != nil {
			return err
		}
		state = stock.DeriveSaleStockState(consumptions, append(refunds, created...))
		return nil
	})
	if err != nil {
		o.reportFailure(ctx, stock.ReferenceRefund, cmd.SaleID, err)
		return nil, err
	}

	if replayed {
		o.reportReplay(ctx, stock.ReferenceRefund, cmd.SaleID)
		return &RefundResult{Movements: created, Replayed: true, State: o.stateAfterReplay(ctx, cmd.SaleID)}, nil
	}

	o.markProcessed(ctx, cmd.IdempotencyKey)
	o.publishMovements(ctx, created)
	return &RefundResult{Movements: created, Replayed: false, State: state}, nil
}

// refundLine reverses one product line across the sale's consumption
// movements, nearest-consumed first, enforcing the over-refund guard.
func refundLine(ctx context.Context, repos TransactionalRepositories, cmd RefundStockCommand,
	consumptions, priorRefunds []*stock.Movement, line SaleLine) ([]*stock.Movement, error) {

	consumed, refunded := stock.RefundableQuantity(consumptions, priorRefunds, line.ProductID)
	if refunded.Add(line.Quantity).GreaterThan(consumed) {
		return nil, stock.NewOverRefundError(cmd.SaleID, consumed, refunded, line.Quantity)
	}

	// per-batch refunded totals cap how much each consumption can reverse
	refundedByBatch := make(map[string]decimal.Decimal)
	for _, r := range priorRefunds {
		if r.ProductID != line.ProductID || r.BatchID == nil {
			continue
		}
		key := r.BatchID.String()
		refundedByBatch[key] = refundedByBatch[key].Add(r.Quantity)
	}

	created := make([]*stock.Movement, 0, len(consumptions))
	remaining := line.Quantity
	for _, consumption := range consumptions {
		if remaining.IsZero() {
			break
		}
		if consumption.ProductID != line.ProductID || consumption.BatchID == nil {
			continue
		}
		key := consumption.BatchID.String()
		capacity := consumption.Quantity.Neg().Sub(refundedByBatch[key])
		if !capacity.IsPositive() {
			continue
		}
		amount := decimal.Min(remaining, capacity)

		movement, err := consumption.Reverse(amount, stock.ReferenceRefund, cmd.SaleID, cmd.Reason, cmd.Actor)
		if err != nil {
			return nil, err
		}
		movement.WithIdempotencyKey(cmd.IdempotencyKey)
		if err := applyMovement(ctx, repos, movement, true); err != nil {
			return nil, err
		}

		refundedByBatch[key] = refundedByBatch[key].Add(amount)
		created = append(created, movement)
		remaining = remaining.Sub(amount)
	}
	if !remaining.IsZero() {
		return nil, stock.NewConsistencyCheckFailedError(fmt.Sprintf(
			"refund for sale %s left %s of product %s unassigned to a batch",
			cmd.SaleID, remaining.String(), line.ProductID))
	}
	return created, nil
}

// remainingLines builds the per-product remainder for a full refund
func remainingLines(consumptions, refunds []*stock.Movement) []SaleLine {
	lines := make([]SaleLine, 0, len(consumptions))
	seen := make(map[string]bool)
	for _, m := range consumptions {
		key := m.ProductID.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		consumed, refunded := stock.RefundableQuantity(consumptions, refunds, m.ProductID)
		remainder := consumed.Sub(refunded)
		if remainder.IsPositive() {
			lines = append(lines, SaleLine{ProductID: m.ProductID, Quantity: remainder})
		}
	}
	return lines
}

// verifyConsumption checks that created movements exactly cover the requested
// lines. A mismatch is a fatal internal failure, never a partial result.
func verifyConsumption(created []*stock.Movement, lines []SaleLine) error {
	perProduct := make(map[string]decimal.Decimal)
	for _, m := range created {
		key := m.ProductID.String()
		perProduct[key] = perProduct[key].Add(m.Quantity.Neg())
	}
	requested := make(map[string]decimal.Decimal)
	for _, line := range lines {
		key := line.ProductID.String()
		requested[key] = requested[key].Add(line.Quantity)
	}
	for key, want := range requested {
		if got := perProduct[key]; !got.Equal(want) {
			return stock.NewConsistencyCheckFailedError(fmt.Sprintf(
				"consumed %s of product %s, requested %s", got.String(), key, want.String()))
		}
	}
	for key := range perProduct {
		if _, ok := requested[key]; !ok {
			return stock.NewConsistencyCheckFailedError("movement created for unrequested product " + key)
		}
	}
	return nil
}

// verifyRefund checks that created refund movements exactly cover the lines
func verifyRefund(created []*stock.Movement, lines []SaleLine) error {
	perProduct := make(map[string]decimal.Decimal)
	for _, m := range created {
		key := m.ProductID.String()
		perProduct[key] = perProduct[key].Add(m.Quantity)
	}
	for _, line := range lines {
		key := line.ProductID.String()
		if got := perProduct[key]; !got.Equal(line.Quantity) {
			return stock.NewConsistencyCheckFailedError(fmt.Sprintf(
				"refunded %s of product %s, requested %s", got.String(), key, line.Quantity.String()))
		}
	}
	return nil
}

func (o *Orchestrator) publishBlocked(ctx context.Context, cmd ConsumeForSaleCommand, line SaleLine, err error) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return
	}
	var event shared.DomainEvent
	switch domainErr.Code {
	case stock.ErrCodeInsufficientStock:
		event = stock.NewInsufficientStockBlockedEvent(line.ProductID, cmd.LocationID, decimal.Zero, line.Quantity)
	case stock.ErrCodeExpiredBatchOnly:
		event = stock.NewExpiredBatchBlockedEvent(line.ProductID, cmd.LocationID, decimal.Zero, line.Quantity)
	default:
		return
	}
	if pubErr := o.publisher.Publish(ctx, event); pubErr != nil {
		o.logger.Warn("failed to publish blocked event", zap.Error(pubErr))
	}
}

func (o *Orchestrator) publishMovements(ctx context.Context, movements []*stock.Movement) {
	for _, m := range movements {
		o.metrics.MovementCreated(ctx, string(m.Kind))
		if err := o.publisher.Publish(ctx, stock.NewMovementRecordedEvent(m)); err != nil {
			o.logger.Warn("failed to publish movement event",
				zap.String("movement_id", m.ID.String()),
				zap.Error(err))
		}
	}
}

func (o *Orchestrator) reportReplay(ctx context.Context, refType stock.ReferenceType, refID string) {
	o.metrics.IdempotentReplay(ctx)
	if err := o.publisher.Publish(ctx, stock.NewIdempotentReplayEvent(refType, refID)); err != nil {
		o.logger.Warn("failed to publish replay event", zap.Error(err))
	}
	o.logger.Info("idempotent replay, returning existing movements",
		zap.String("reference_type", string(refType)),
		zap.String("reference_id", refID))
}

func (o *Orchestrator) reportFailure(ctx context.Context, refType stock.ReferenceType, refID string, err error) {
	reportFailure(ctx, o.publisher, o.metrics, o.logger, refType, refID, err)
}

func (o *Orchestrator) markProcessed(ctx context.Context, key string) {
	if key == "" || !o.idemConfig.Enabled {
		return
	}
	if _, err := o.idempotency.MarkProcessed(ctx, key, o.idemConfig.TTL); err != nil {
		o.logger.Warn("failed to mark idempotency key processed",
			zap.String("key", key), zap.Error(err))
	}
}

// stateAfterReplay re-derives the sale state for a replayed refund response
func (o *Orchestrator) stateAfterReplay(ctx context.Context, saleID string) stock.SaleStockState {
	var state stock.SaleStockState
	err := o.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		consumptions, err := repos.Movements().FindByReference(ctx, stock.ReferenceSale, saleID)
		if err != nil {
			return err
		}
		refunds, err := repos.Movements().FindByReference(ctx, stock.ReferenceRefund, saleID)
		if err != nil {
			return err
		}
		state = stock.DeriveSaleStockState(consumptions, refunds)
		return nil
	})
	if err != nil {
		o.logger.Warn("failed to derive sale state after replay", zap.Error(err))
		return stock.SaleConsumed
	}
	return state
}
