package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockOnHandRepo creates a repository over a mocked postgres connection so
// the generated locking SQL can be asserted
func newMockOnHandRepo(t *testing.T) (*GormOnHandRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormOnHandRepository(gormDB), mock, mockDB
}

func TestGetForUpdateLocking(t *testing.T) {
	productID := uuid.New()
	locationID := uuid.New()
	batchID := uuid.New()

	t.Run("locks the row with SELECT FOR UPDATE after lazy insert", func(t *testing.T) {
		repo, mock, mockDB := newMockOnHandRepo(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "stock_on_hand" .* ON CONFLICT .* DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		rows := sqlmock.NewRows([]string{"id", "product_id", "location_id", "batch_id", "quantity"}).
			AddRow(uuid.New(), productID, locationID, batchID, "10")
		mock.ExpectQuery(`SELECT .* FROM "stock_on_hand" .* FOR UPDATE`).
			WillReturnRows(rows)

		record, err := repo.GetForUpdate(context.Background(), productID, locationID, batchID)

		require.NoError(t, err)
		assert.True(t, record.Quantity.Equal(qty("10")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock timeout surfaces as retryable LOCK_TIMEOUT", func(t *testing.T) {
		repo, mock, mockDB := newMockOnHandRepo(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "stock_on_hand"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT .* FOR UPDATE`).
			WillReturnError(&pgconn.PgError{Code: pgLockNotAvail, Message: "canceling statement due to lock timeout"})

		_, err := repo.GetForUpdate(context.Background(), productID, locationID, batchID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, stock.ErrCodeLockTimeout, domainErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// translateError must map every server error the pgx driver can raise on the
// ledger's write paths; a raw driver error reaching a caller is a defect
func TestTranslateErrorPgxMapping(t *testing.T) {
	t.Run("lock timeout surfaces as retryable LOCK_TIMEOUT", func(t *testing.T) {
		err := translateError(&pgconn.PgError{
			Code:    pgLockNotAvail,
			Message: "canceling statement due to lock timeout",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, stock.ErrCodeLockTimeout, domainErr.Code)
	})

	t.Run("check violation surfaces as insufficient stock", func(t *testing.T) {
		err := translateError(&pgconn.PgError{
			Code:           pgCheckViolation,
			ConstraintName: "chk_on_hand_non_negative",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, stock.ErrCodeInsufficientStock, domainErr.Code)
	})

	t.Run("other check violations surface as invalid input", func(t *testing.T) {
		err := translateError(&pgconn.PgError{
			Code:           pgCheckViolation,
			ConstraintName: "chk_movement_quantity_nonzero",
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("unique violation surfaces as already exists", func(t *testing.T) {
		err := translateError(&pgconn.PgError{Code: pgUniqueViolation})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("wrapped driver errors are still recognized", func(t *testing.T) {
		err := translateError(fmt.Errorf("apply movement: %w",
			&pgconn.PgError{Code: pgUniqueViolation}))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}
