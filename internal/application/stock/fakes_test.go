package stock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeRepos is an in-memory implementation of the stock repositories with
// snapshot/restore so fakeScope can emulate transactional rollback.
type fakeRepos struct {
	locations map[uuid.UUID]*stock.Location
	batches   map[uuid.UUID]*stock.Batch
	movements []*stock.Movement
	onHand    map[string]*stock.OnHandRecord
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		locations: make(map[uuid.UUID]*stock.Location),
		batches:   make(map[uuid.UUID]*stock.Batch),
		onHand:    make(map[string]*stock.OnHandRecord),
	}
}

func (r *fakeRepos) Locations() stock.LocationRepository { return (*fakeLocationRepo)(r) }
func (r *fakeRepos) Batches() stock.BatchRepository      { return (*fakeBatchRepo)(r) }
func (r *fakeRepos) Movements() stock.MovementRepository { return (*fakeMovementRepo)(r) }
func (r *fakeRepos) OnHand() stock.OnHandRepository      { return (*fakeOnHandRepo)(r) }

type fakeSnapshot struct {
	movements []*stock.Movement
	onHand    map[string]stock.OnHandRecord
}

func (r *fakeRepos) snapshot() fakeSnapshot {
	snap := fakeSnapshot{
		movements: append([]*stock.Movement(nil), r.movements...),
		onHand:    make(map[string]stock.OnHandRecord, len(r.onHand)),
	}
	for k, v := range r.onHand {
		snap.onHand[k] = *v
	}
	return snap
}

func (r *fakeRepos) restore(snap fakeSnapshot) {
	r.movements = snap.movements
	r.onHand = make(map[string]*stock.OnHandRecord, len(snap.onHand))
	for k, v := range snap.onHand {
		record := v
		r.onHand[k] = &record
	}
}

// fakeScope runs fn against the fake repositories and restores the previous
// state when fn fails, mirroring a rolled-back transaction.
type fakeScope struct {
	repos *fakeRepos
}

func (s *fakeScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	snap := s.repos.snapshot()
	if err := fn(s.repos); err != nil {
		s.repos.restore(snap)
		return err
	}
	return nil
}

type fakeLocationRepo fakeRepos

func (r *fakeLocationRepo) Create(_ context.Context, location *stock.Location) error {
	r.locations[location.ID] = location
	return nil
}

func (r *fakeLocationRepo) Update(_ context.Context, location *stock.Location) error {
	r.locations[location.ID] = location
	return nil
}

func (r *fakeLocationRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.Location, error) {
	if location, ok := r.locations[id]; ok {
		return location, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeLocationRepo) FindByCode(_ context.Context, code string) (*stock.Location, error) {
	for _, location := range r.locations {
		if location.Code == strings.ToUpper(code) {
			return location, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeLocationRepo) List(_ context.Context, activeOnly bool) ([]*stock.Location, error) {
	var result []*stock.Location
	for _, location := range r.locations {
		if activeOnly && !location.Active {
			continue
		}
		result = append(result, location)
	}
	return result, nil
}

type fakeBatchRepo fakeRepos

func (r *fakeBatchRepo) Create(_ context.Context, batch *stock.Batch) error {
	r.batches[batch.ID] = batch
	return nil
}

func (r *fakeBatchRepo) Update(_ context.Context, batch *stock.Batch) error {
	r.batches[batch.ID] = batch
	return nil
}

func (r *fakeBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.Batch, error) {
	if batch, ok := r.batches[id]; ok {
		return batch, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeBatchRepo) FindByProductAndNumber(_ context.Context, productID uuid.UUID, batchNumber string) (*stock.Batch, error) {
	for _, batch := range r.batches {
		if batch.ProductID == productID && batch.BatchNumber == batchNumber {
			return batch, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeBatchRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]*stock.Batch, error) {
	var result []*stock.Batch
	for _, batch := range r.batches {
		if batch.ProductID == productID {
			result = append(result, batch)
		}
	}
	return result, nil
}

type fakeMovementRepo fakeRepos

func (r *fakeMovementRepo) Create(_ context.Context, movement *stock.Movement) error {
	r.movements = append(r.movements, movement)
	return nil
}

// the fake scope runs transactions one at a time, so there is nothing to lock
func (r *fakeMovementRepo) LockReference(_ context.Context, _ stock.ReferenceType, _ string) error {
	return nil
}

func (r *fakeMovementRepo) FindByReference(_ context.Context, refType stock.ReferenceType, refID string) ([]*stock.Movement, error) {
	var result []*stock.Movement
	for _, m := range r.movements {
		if m.ReferenceType == refType && m.ReferenceID == refID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *fakeMovementRepo) FindByIdempotencyKey(_ context.Context, key string) ([]*stock.Movement, error) {
	var result []*stock.Movement
	for _, m := range r.movements {
		if m.IdempotencyKey == key {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *fakeMovementRepo) List(_ context.Context, filter stock.MovementFilter) ([]*stock.Movement, int64, error) {
	var result []*stock.Movement
	for _, m := range r.movements {
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.LocationID != nil && m.LocationID != *filter.LocationID {
			continue
		}
		if filter.Kind != nil && m.Kind != *filter.Kind {
			continue
		}
		result = append(result, m)
	}
	return result, int64(len(result)), nil
}

func (r *fakeMovementRepo) SumForTriple(_ context.Context, productID, locationID, batchID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, m := range r.movements {
		mBatch := uuid.Nil
		if m.BatchID != nil {
			mBatch = *m.BatchID
		}
		if m.ProductID == productID && m.LocationID == locationID && mBatch == batchID {
			sum = sum.Add(m.Quantity)
		}
	}
	return sum, nil
}

type fakeOnHandRepo fakeRepos

func tripleKey(productID, locationID, batchID uuid.UUID) string {
	return productID.String() + "|" + locationID.String() + "|" + batchID.String()
}

func (r *fakeOnHandRepo) GetForUpdate(_ context.Context, productID, locationID, batchID uuid.UUID) (*stock.OnHandRecord, error) {
	key := tripleKey(productID, locationID, batchID)
	if record, ok := r.onHand[key]; ok {
		return record, nil
	}
	record := stock.NewOnHandRecord(productID, locationID, batchID)
	r.onHand[key] = record
	return record, nil
}

func (r *fakeOnHandRepo) Save(_ context.Context, record *stock.OnHandRecord) error {
	r.onHand[tripleKey(record.ProductID, record.LocationID, record.BatchID)] = record
	return nil
}

func (r *fakeOnHandRepo) ListAvailable(_ context.Context, productID, locationID uuid.UUID) ([]stock.OnHandLine, error) {
	var result []stock.OnHandLine
	for _, record := range r.onHand {
		if record.ProductID != productID || record.LocationID != locationID || !record.Quantity.IsPositive() {
			continue
		}
		batch := r.batches[record.BatchID]
		if batch == nil {
			continue
		}
		result = append(result, stock.OnHandLine{Record: record, Batch: batch})
	}
	return result, nil
}

func (r *fakeOnHandRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]stock.OnHandLine, error) {
	var result []stock.OnHandLine
	for _, record := range r.onHand {
		if record.ProductID != productID {
			continue
		}
		result = append(result, stock.OnHandLine{Record: record, Batch: r.batches[record.BatchID]})
	}
	return result, nil
}

func (r *fakeOnHandRepo) ListExpiringWithStock(_ context.Context, cutoff time.Time, productID *uuid.UUID) ([]stock.OnHandLine, error) {
	var result []stock.OnHandLine
	for _, record := range r.onHand {
		if productID != nil && record.ProductID != *productID {
			continue
		}
		if !record.Quantity.IsPositive() {
			continue
		}
		batch := r.batches[record.BatchID]
		if batch == nil || batch.ExpiryDate == nil || !batch.ExpiryDate.Before(cutoff) {
			continue
		}
		result = append(result, stock.OnHandLine{Record: record, Batch: batch})
	}
	return result, nil
}

// fakePublisher collects published events
type fakePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *fakePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *fakePublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

// fakeIdempotencyStore is a map-backed idempotency store
type fakeIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

// fakeMetrics counts recorder calls
type fakeMetrics struct {
	mu           sync.Mutex
	movements    int
	insufficient int
	expired      int
	replays      int
	rollbacks    int
}

func (m *fakeMetrics) MovementCreated(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements++
}

func (m *fakeMetrics) InsufficientBlocked(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insufficient++
}

func (m *fakeMetrics) ExpiredBlocked(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired++
}

func (m *fakeMetrics) IdempotentReplay(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replays++
}

func (m *fakeMetrics) Rollback(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks++
}
