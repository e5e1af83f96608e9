package stock

import (
	"errors"
	"testing"
	"time"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func testBatch(t *testing.T, productID uuid.UUID, number string, expiry *time.Time, receivedAt time.Time) *Batch {
	t.Helper()
	b, err := NewBatch(productID, number, expiry, receivedAt, "", "")
	require.NoError(t, err)
	return b
}

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAllocateFEFO(t *testing.T) {
	now := time.Now()
	productID := uuid.New()

	t.Run("draws from nearest expiry first then next", func(t *testing.T) {
		// batch A: 10 units, expires in 5 days; batch B: 50 units, expires in 30 days
		batchA := testBatch(t, productID, "A", timePtr(now.AddDate(0, 0, 5)), now.AddDate(0, 0, -10))
		batchB := testBatch(t, productID, "B", timePtr(now.AddDate(0, 0, 30)), now.AddDate(0, 0, -5))

		plan, err := AllocateFEFO([]BatchStock{
			{Batch: batchB, Available: qty("50")},
			{Batch: batchA, Available: qty("10")},
		}, qty("15"), now, false)

		require.NoError(t, err)
		require.Len(t, plan, 2)
		assert.Equal(t, "A", plan[0].Batch.BatchNumber)
		assert.True(t, plan[0].Quantity.Equal(qty("10")))
		assert.Equal(t, "B", plan[1].Batch.BatchNumber)
		assert.True(t, plan[1].Quantity.Equal(qty("5")))
	})

	t.Run("single batch covers the whole request", func(t *testing.T) {
		batchA := testBatch(t, productID, "A", timePtr(now.AddDate(0, 0, 5)), now)

		plan, err := AllocateFEFO([]BatchStock{
			{Batch: batchA, Available: qty("10")},
		}, qty("7"), now, false)

		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.True(t, plan[0].Quantity.Equal(qty("7")))
	})

	t.Run("batches without expiry sort last", func(t *testing.T) {
		noExpiry := testBatch(t, productID, "NOEXP", nil, now.AddDate(0, 0, -30))
		expiring := testBatch(t, productID, "EXPIRING", timePtr(now.AddDate(0, 0, 60)), now)

		plan, err := AllocateFEFO([]BatchStock{
			{Batch: noExpiry, Available: qty("100")},
			{Batch: expiring, Available: qty("3")},
		}, qty("5"), now, false)

		require.NoError(t, err)
		require.Len(t, plan, 2)
		assert.Equal(t, "EXPIRING", plan[0].Batch.BatchNumber)
		assert.Equal(t, "NOEXP", plan[1].Batch.BatchNumber)
	})

	t.Run("same expiry breaks tie by received date then id", func(t *testing.T) {
		expiry := timePtr(now.AddDate(0, 0, 10))
		older := testBatch(t, productID, "OLDER", expiry, now.AddDate(0, 0, -20))
		newer := testBatch(t, productID, "NEWER", expiry, now.AddDate(0, 0, -1))

		plan, err := AllocateFEFO([]BatchStock{
			{Batch: newer, Available: qty("10")},
			{Batch: older, Available: qty("10")},
		}, qty("12"), now, false)

		require.NoError(t, err)
		require.Len(t, plan, 2)
		assert.Equal(t, "OLDER", plan[0].Batch.BatchNumber)
		assert.Equal(t, "NEWER", plan[1].Batch.BatchNumber)
	})

	t.Run("only expired stock fails with expired-batch-only", func(t *testing.T) {
		// batch C: 5 units, already expired
		batchC := testBatch(t, productID, "C", timePtr(now.AddDate(0, 0, -1)), now.AddDate(0, 0, -60))

		_, err := AllocateFEFO([]BatchStock{
			{Batch: batchC, Available: qty("5")},
		}, qty("5"), now, false)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, ErrCodeExpiredBatchOnly, domainErr.Code)
		assert.Contains(t, domainErr.Message, "0 non-expired")
		assert.Contains(t, domainErr.Message, "5 needed")
	})

	t.Run("allowExpired draws from expired batches", func(t *testing.T) {
		batchC := testBatch(t, productID, "C", timePtr(now.AddDate(0, 0, -1)), now.AddDate(0, 0, -60))

		plan, err := AllocateFEFO([]BatchStock{
			{Batch: batchC, Available: qty("5")},
		}, qty("5"), now, true)

		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.Equal(t, "C", plan[0].Batch.BatchNumber)
		assert.True(t, plan[0].Quantity.Equal(qty("5")))
	})

	t.Run("expired batches consumed after fresh ones when allowed", func(t *testing.T) {
		expired := testBatch(t, productID, "EXPIRED", timePtr(now.AddDate(0, 0, -5)), now.AddDate(0, 0, -90))
		fresh := testBatch(t, productID, "FRESH", timePtr(now.AddDate(0, 0, 20)), now)

		plan, err := AllocateFEFO([]BatchStock{
			{Batch: fresh, Available: qty("4")},
			{Batch: expired, Available: qty("4")},
		}, qty("6"), now, true)

		require.NoError(t, err)
		require.Len(t, plan, 2)
		// expired sorts first by expiry date; FEFO is purely date ordered once
		// expired stock is admitted
		assert.Equal(t, "EXPIRED", plan[0].Batch.BatchNumber)
		assert.Equal(t, "FRESH", plan[1].Batch.BatchNumber)
	})

	t.Run("shortfall fails with insufficient stock and totals", func(t *testing.T) {
		batchA := testBatch(t, productID, "A", timePtr(now.AddDate(0, 0, 5)), now)

		_, err := AllocateFEFO([]BatchStock{
			{Batch: batchA, Available: qty("10")},
		}, qty("11"), now, false)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, ErrCodeInsufficientStock, domainErr.Code)
		assert.Contains(t, domainErr.Message, "10 available")
		assert.Contains(t, domainErr.Message, "11 needed")
	})

	t.Run("zero-quantity rows are ignored", func(t *testing.T) {
		empty := testBatch(t, productID, "EMPTY", timePtr(now.AddDate(0, 0, 1)), now)
		full := testBatch(t, productID, "FULL", timePtr(now.AddDate(0, 0, 10)), now)

		plan, err := AllocateFEFO([]BatchStock{
			{Batch: empty, Available: decimal.Zero},
			{Batch: full, Available: qty("5")},
		}, qty("5"), now, false)

		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.Equal(t, "FULL", plan[0].Batch.BatchNumber)
	})

	t.Run("rejects non-positive requests", func(t *testing.T) {
		_, err := AllocateFEFO(nil, decimal.Zero, now, false)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, ErrCodeInvalidMovement, domainErr.Code)
	})
}

func TestSortFEFO(t *testing.T) {
	now := time.Now()
	productID := uuid.New()

	soon := testBatch(t, productID, "SOON", timePtr(now.AddDate(0, 0, 2)), now)
	later := testBatch(t, productID, "LATER", timePtr(now.AddDate(0, 0, 200)), now)
	never := testBatch(t, productID, "NEVER", nil, now)

	rows := []BatchStock{
		{Batch: never, Available: qty("1")},
		{Batch: later, Available: qty("1")},
		{Batch: soon, Available: qty("1")},
	}
	SortFEFO(rows)

	assert.Equal(t, "SOON", rows[0].Batch.BatchNumber)
	assert.Equal(t, "LATER", rows[1].Batch.BatchNumber)
	assert.Equal(t, "NEVER", rows[2].Batch.BatchNumber)
}
