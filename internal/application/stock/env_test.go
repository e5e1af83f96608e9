package stock

import (
	"context"
	"testing"
	"time"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEnv wires the services over the in-memory fakes
type testEnv struct {
	repos        *fakeRepos
	publisher    *fakePublisher
	metrics      *fakeMetrics
	idem         *fakeIdempotencyStore
	ledger       *LedgerService
	orchestrator *Orchestrator
	batches      *BatchService
	locations    *LocationService
	queries      *QueryService
	location     *stock.Location
	productID    uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repos := newFakeRepos()
	scope := &fakeScope{repos: repos}
	publisher := &fakePublisher{}
	metrics := &fakeMetrics{}
	idem := newFakeIdempotencyStore()
	logger := zap.NewNop()

	ledger := NewLedgerService(scope, publisher, metrics, logger)
	env := &testEnv{
		repos:        repos,
		publisher:    publisher,
		metrics:      metrics,
		idem:         idem,
		ledger:       ledger,
		orchestrator: NewOrchestrator(scope, idem, shared.DefaultIdempotencyConfig(), publisher, metrics, logger),
		batches:      NewBatchService(scope, ledger, logger),
		locations:    NewLocationService(scope, logger),
		queries:      NewQueryService(scope),
		productID:    uuid.New(),
	}

	location, err := stock.NewLocation("MAIN", "Main cabinet", stock.LocationCabinet)
	require.NoError(t, err)
	repos.locations[location.ID] = location
	env.location = location
	return env
}

func (e *testEnv) addLocation(t *testing.T, code string) *stock.Location {
	t.Helper()
	location, err := stock.NewLocation(code, code, stock.LocationRoom)
	require.NoError(t, err)
	e.repos.locations[location.ID] = location
	return location
}

// seedBatch registers a batch and books its inbound stock through the ledger
// so the projection and the movement log stay consistent
func (e *testEnv) seedBatch(t *testing.T, productID uuid.UUID, number string, expiry *time.Time, receivedAt time.Time, quantity string) *stock.Batch {
	t.Helper()
	batch, err := stock.NewBatch(productID, number, expiry, receivedAt, "", "")
	require.NoError(t, err)
	e.repos.batches[batch.ID] = batch

	batchID := batch.ID
	_, err = e.ledger.RecordMovement(context.Background(), RecordMovementCommand{
		ProductID:     productID,
		LocationID:    e.location.ID,
		BatchID:       &batchID,
		Kind:          stock.MovementPurchase,
		Quantity:      decimal.RequireFromString(quantity),
		ReferenceType: stock.ReferencePurchase,
		ReferenceID:   "seed-" + number,
		Actor:         "seeder",
	})
	require.NoError(t, err)
	return batch
}

func (e *testEnv) onHandQuantity(productID, locationID, batchID uuid.UUID) decimal.Decimal {
	record, ok := e.repos.onHand[tripleKey(productID, locationID, batchID)]
	if !ok {
		return decimal.Zero
	}
	return record.Quantity
}
