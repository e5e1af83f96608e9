package stock

import (
	"fmt"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Error codes for the stock domain
const (
	ErrCodeInvalidMovement        = "INVALID_MOVEMENT"
	ErrCodeBatchRequired          = "BATCH_REQUIRED"
	ErrCodeDuplicateBatch         = "DUPLICATE_BATCH"
	ErrCodeExpiredBatch           = "EXPIRED_BATCH"
	ErrCodeExpiredBatchOnly       = "EXPIRED_BATCH_ONLY"
	ErrCodeInsufficientStock      = "INSUFFICIENT_STOCK"
	ErrCodeOverRefund             = "OVER_REFUND"
	ErrCodeLockTimeout            = "LOCK_TIMEOUT"
	ErrCodeConsistencyCheckFailed = "CONSISTENCY_CHECK_FAILED"
	ErrCodeLocationInactive       = "LOCATION_INACTIVE"
)

// NewInvalidMovementError indicates a movement that violates ledger rules
func NewInvalidMovementError(reason string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeInvalidMovement, fmt.Sprintf("invalid stock movement: %s", reason))
}

// NewBatchRequiredError indicates a batch-tracked product was moved without a batch
func NewBatchRequiredError(productID string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeBatchRequired, fmt.Sprintf("product %s is batch-tracked, a batch must be specified", productID))
}

// NewDuplicateBatchError indicates a batch number already exists for the product
func NewDuplicateBatchError(productID, batchNumber string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeDuplicateBatch, fmt.Sprintf("batch %s already registered for product %s", batchNumber, productID))
}

// NewExpiredBatchError indicates an explicitly requested batch is expired
func NewExpiredBatchError(batchNumber string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeExpiredBatch, fmt.Sprintf("batch %s is expired", batchNumber))
}

// NewExpiredBatchOnlyError indicates only expired stock remains to cover the request
func NewExpiredBatchOnlyError(availableNonExpired, needed decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(ErrCodeExpiredBatchOnly,
		fmt.Sprintf("only expired stock available: %s non-expired on hand, %s needed", availableNonExpired.String(), needed.String()))
}

// NewInsufficientStockError indicates total on-hand stock cannot cover the request
func NewInsufficientStockError(available, needed decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(ErrCodeInsufficientStock,
		fmt.Sprintf("insufficient stock: %s available, %s needed", available.String(), needed.String()))
}

// NewOverRefundError indicates a refund would exceed the quantity consumed for the sale
func NewOverRefundError(saleReference string, consumed, alreadyRefunded, requested decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(ErrCodeOverRefund,
		fmt.Sprintf("refund of %s exceeds refundable quantity for sale %s: %s consumed, %s already refunded",
			requested.String(), saleReference, consumed.String(), alreadyRefunded.String()))
}

// NewLockTimeoutError indicates a row lock could not be acquired in time; callers may retry
func NewLockTimeoutError() *shared.DomainError {
	return shared.NewDomainError(ErrCodeLockTimeout, "could not acquire stock lock in time, please retry")
}

// NewConsistencyCheckFailedError indicates the ledger and projection disagree; this is fatal
func NewConsistencyCheckFailedError(detail string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeConsistencyCheckFailed, fmt.Sprintf("stock consistency check failed: %s", detail))
}

// NewLocationInactiveError indicates a movement targeted a deactivated location
func NewLocationInactiveError(locationName string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeLocationInactive, fmt.Sprintf("location %s is deactivated", locationName))
}
