package stock

import (
	"context"
	"testing"
	"time"

	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBatch(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("registers a batch", func(t *testing.T) {
		env := newTestEnv(t)

		batch, err := env.batches.CreateBatch(ctx, CreateBatchCommand{
			ProductID:   env.productID,
			BatchNumber: "LOT-2026-001",
			ExpiryDate:  timePtr(now.AddDate(1, 0, 0)),
			ReceivedAt:  now,
			Supplier:    "ACME Pharma",
		})

		require.NoError(t, err)
		assert.Equal(t, "LOT-2026-001", batch.BatchNumber)
		assert.Equal(t, "ACME Pharma", batch.Supplier)
	})

	t.Run("duplicate number for the same product is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		cmd := CreateBatchCommand{
			ProductID:   env.productID,
			BatchNumber: "LOT-1",
			ReceivedAt:  now,
		}
		_, err := env.batches.CreateBatch(ctx, cmd)
		require.NoError(t, err)

		_, err = env.batches.CreateBatch(ctx, cmd)
		assertCode(t, err, stock.ErrCodeDuplicateBatch)
	})

	t.Run("same number on a different product is fine", func(t *testing.T) {
		env := newTestEnv(t)
		otherProduct := uuid.New()

		_, err := env.batches.CreateBatch(ctx, CreateBatchCommand{
			ProductID: env.productID, BatchNumber: "LOT-1", ReceivedAt: now,
		})
		require.NoError(t, err)

		_, err = env.batches.CreateBatch(ctx, CreateBatchCommand{
			ProductID: otherProduct, BatchNumber: "LOT-1", ReceivedAt: now,
		})
		assert.NoError(t, err)
	})
}

func TestReceiveStock(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("creates the batch and books the inbound movement together", func(t *testing.T) {
		env := newTestEnv(t)

		batch, movement, err := env.batches.ReceiveStock(ctx, ReceiveStockCommand{
			CreateBatchCommand: CreateBatchCommand{
				ProductID:   env.productID,
				BatchNumber: "LOT-1",
				ExpiryDate:  timePtr(now.AddDate(0, 6, 0)),
				ReceivedAt:  now,
			},
			LocationID:  env.location.ID,
			Quantity:    qty("25"),
			ReferenceID: "po-77",
			Actor:       "alice",
		})

		require.NoError(t, err)
		assert.Equal(t, stock.MovementPurchase, movement.Kind)
		assert.Equal(t, "po-77", movement.ReferenceID)
		assert.True(t, env.onHandQuantity(env.productID, env.location.ID, batch.ID).Equal(qty("25")))
	})

	t.Run("books against an existing batch with the same number", func(t *testing.T) {
		env := newTestEnv(t)
		existing := env.seedBatch(t, env.productID, "LOT-1", nil, now, "10")

		batch, _, err := env.batches.ReceiveStock(ctx, ReceiveStockCommand{
			CreateBatchCommand: CreateBatchCommand{
				ProductID:   env.productID,
				BatchNumber: "LOT-1",
				ReceivedAt:  now,
			},
			LocationID: env.location.ID,
			Quantity:   qty("5"),
			Actor:      "alice",
		})

		require.NoError(t, err)
		assert.Equal(t, existing.ID, batch.ID)
		assert.True(t, env.onHandQuantity(env.productID, env.location.ID, existing.ID).Equal(qty("15")))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		env := newTestEnv(t)

		_, _, err := env.batches.ReceiveStock(ctx, ReceiveStockCommand{
			CreateBatchCommand: CreateBatchCommand{
				ProductID:   env.productID,
				BatchNumber: "LOT-1",
			},
			LocationID: env.location.ID,
			Quantity:   qty("0"),
			Actor:      "alice",
		})
		assertCode(t, err, stock.ErrCodeInvalidMovement)
	})
}

func TestQueryService(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("on-hand summary aggregates totals and expired stock", func(t *testing.T) {
		env := newTestEnv(t)
		fresh := env.seedBatch(t, env.productID, "FRESH", timePtr(now.AddDate(0, 0, 30)), now, "12")
		expired := env.seedBatch(t, env.productID, "EXPIRED", timePtr(now.AddDate(0, 0, -2)), now.AddDate(0, 0, -60), "3")

		summary, err := env.queries.GetOnHandSummary(ctx, env.productID)

		require.NoError(t, err)
		assert.True(t, summary.Total.Equal(qty("15")))
		require.Len(t, summary.ByLocation, 1)
		assert.Len(t, summary.ByBatch, 2)
		require.Len(t, summary.ExpiredWithStock, 1)
		assert.Equal(t, expired.ID, summary.ExpiredWithStock[0].BatchID)
		_ = fresh
	})

	t.Run("expiry lookahead lists batches expiring within the window", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedBatch(t, env.productID, "SOON", timePtr(now.AddDate(0, 0, 10)), now, "5")
		env.seedBatch(t, env.productID, "LATER", timePtr(now.AddDate(0, 6, 0)), now, "5")
		env.seedBatch(t, env.productID, "NEVER", nil, now, "5")

		expiring, err := env.queries.ListExpiring(ctx, 30, &env.productID)

		require.NoError(t, err)
		require.Len(t, expiring, 1)
		assert.Equal(t, "SOON", expiring[0].BatchNumber)
	})

	t.Run("sale stock state follows the ledger", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedBatch(t, env.productID, "A", nil, now, "10")

		state, movements, err := env.queries.GetSaleStockState(ctx, "sale-1")
		require.NoError(t, err)
		assert.Equal(t, stock.SaleNotConsumed, state)
		assert.Empty(t, movements)

		_, err = env.orchestrator.ConsumeForSale(ctx, ConsumeForSaleCommand{
			SaleID:     "sale-1",
			LocationID: env.location.ID,
			Lines:      []SaleLine{{ProductID: env.productID, Quantity: qty("4")}},
			Actor:      "alice",
		})
		require.NoError(t, err)

		state, movements, err = env.queries.GetSaleStockState(ctx, "sale-1")
		require.NoError(t, err)
		assert.Equal(t, stock.SaleConsumed, state)
		assert.Len(t, movements, 1)
	})
}
