package stock

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchExpiry(t *testing.T) {
	now := time.Now()
	productID := uuid.New()

	t.Run("batch without expiry never expires", func(t *testing.T) {
		b := testBatch(t, productID, "B-1", nil, now)

		assert.False(t, b.IsExpired(now))
		assert.False(t, b.IsExpired(now.AddDate(100, 0, 0)))
		assert.Equal(t, -1, b.DaysUntilExpiry(now))
	})

	t.Run("batch expires strictly after its expiry date", func(t *testing.T) {
		expiry := now.AddDate(0, 0, 5)
		b := testBatch(t, productID, "B-2", &expiry, now)

		assert.False(t, b.IsExpired(now))
		assert.True(t, b.IsExpired(expiry.AddDate(0, 0, 1)))
		assert.Equal(t, 5, b.DaysUntilExpiry(now))
	})

	t.Run("batch expiring today is usable all day", func(t *testing.T) {
		morning := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
		expiry := morning
		b := testBatch(t, productID, "B-4", &expiry, morning.AddDate(0, 0, -30))

		assert.False(t, b.IsExpired(morning))
		assert.False(t, b.IsExpired(morning.Add(23*time.Hour+59*time.Minute)))
		assert.Equal(t, 0, b.DaysUntilExpiry(morning.Add(18*time.Hour)))

		assert.True(t, b.IsExpired(morning.AddDate(0, 0, 1)))
	})

	t.Run("wall-clock time does not shift whole-day counts", func(t *testing.T) {
		expiry := time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)
		b := testBatch(t, productID, "B-5", &expiry, expiry.AddDate(0, 0, -30))

		lateEvening := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
		assert.Equal(t, 5, b.DaysUntilExpiry(lateEvening))
	})

	t.Run("expired batch reports zero days", func(t *testing.T) {
		expiry := now.AddDate(0, 0, -3)
		b := testBatch(t, productID, "B-3", &expiry, now.AddDate(0, 0, -30))

		assert.True(t, b.IsExpired(now))
		assert.Equal(t, 0, b.DaysUntilExpiry(now))
	})
}

func TestNewBatch(t *testing.T) {
	t.Run("requires product and batch number", func(t *testing.T) {
		_, err := NewBatch(uuid.Nil, "B-1", nil, time.Now(), "", "")
		assert.Error(t, err)

		_, err = NewBatch(uuid.New(), "   ", nil, time.Now(), "", "")
		assert.Error(t, err)
	})

	t.Run("defaults received date to now", func(t *testing.T) {
		b, err := NewBatch(uuid.New(), "B-1", nil, time.Time{}, "ACME Pharma", "")
		require.NoError(t, err)
		assert.False(t, b.ReceivedAt.IsZero())
		assert.Equal(t, "ACME Pharma", b.Supplier)
	})
}

func TestOnHandApply(t *testing.T) {
	record := NewOnHandRecord(uuid.New(), uuid.New(), uuid.New())

	require.NoError(t, record.Apply(qty("10")))
	assert.True(t, record.Quantity.Equal(qty("10")))

	require.NoError(t, record.Apply(qty("-6")))
	assert.True(t, record.Quantity.Equal(qty("4")))

	t.Run("rejects going negative and leaves balance unchanged", func(t *testing.T) {
		err := record.Apply(qty("-5"))
		assertDomainCode(t, err, ErrCodeInsufficientStock)
		assert.True(t, record.Quantity.Equal(qty("4")))
	})

	require.NoError(t, record.Apply(qty("-4")))
	assert.True(t, record.Quantity.IsZero())
}
