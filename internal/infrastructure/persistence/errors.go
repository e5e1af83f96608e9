package persistence

import (
	"errors"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the ledger cares about
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgLockNotAvail    = "55P03"
)

// translateError maps database errors to domain errors so raw driver errors
// never reach callers. The CHECK violation on stock_on_hand.quantity is the
// database-level backstop of the non-negative invariant; a lock_timeout expiry
// surfaces as the retryable LOCK_TIMEOUT error.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}

	// the gorm postgres driver sits on pgx, so server errors surface as
	// *pgconn.PgError
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return shared.ErrAlreadyExists
		case pgCheckViolation:
			if pgErr.ConstraintName == "chk_on_hand_non_negative" {
				return shared.NewDomainError(stock.ErrCodeInsufficientStock,
					"insufficient stock: movement would drive on-hand quantity negative")
			}
			return shared.ErrInvalidInput
		case pgLockNotAvail:
			return stock.NewLockTimeoutError()
		}
	}
	return err
}
