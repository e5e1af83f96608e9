package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementFilter narrows movement listings
type MovementFilter struct {
	ProductID     *uuid.UUID
	LocationID    *uuid.UUID
	BatchID       *uuid.UUID
	Kind          *MovementKind
	ReferenceType *ReferenceType
	ReferenceID   string
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}

// OnHandLine joins an on-hand row with its batch, the unit the allocator and
// the query surface work with
type OnHandLine struct {
	Record *OnHandRecord
	Batch  *Batch
}

// LocationRepository persists locations
type LocationRepository interface {
	Create(ctx context.Context, location *Location) error
	Update(ctx context.Context, location *Location) error
	FindByID(ctx context.Context, id uuid.UUID) (*Location, error)
	FindByCode(ctx context.Context, code string) (*Location, error)
	List(ctx context.Context, activeOnly bool) ([]*Location, error)
}

// BatchRepository persists batches
type BatchRepository interface {
	Create(ctx context.Context, batch *Batch) error
	Update(ctx context.Context, batch *Batch) error
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	FindByProductAndNumber(ctx context.Context, productID uuid.UUID, batchNumber string) (*Batch, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*Batch, error)
}

// MovementRepository persists the append-only movement log.
// There is deliberately no update or delete.
type MovementRepository interface {
	Create(ctx context.Context, movement *Movement) error
	// LockReference serializes transactions working on the same business
	// event. Must be called inside a transaction; the lock is released when
	// the transaction ends.
	LockReference(ctx context.Context, refType ReferenceType, refID string) error
	FindByReference(ctx context.Context, refType ReferenceType, refID string) ([]*Movement, error)
	FindByIdempotencyKey(ctx context.Context, key string) ([]*Movement, error)
	List(ctx context.Context, filter MovementFilter) ([]*Movement, int64, error)
	// SumForTriple returns the running sum of signed movement quantities for a
	// (product, location, batch) triple; used by the ledger consistency check.
	SumForTriple(ctx context.Context, productID, locationID, batchID uuid.UUID) (decimal.Decimal, error)
}

// OnHandRepository persists the materialized on-hand projection
type OnHandRepository interface {
	// GetForUpdate loads the on-hand row for a triple under a row-level write
	// lock, creating it lazily with zero quantity if absent. Must be called
	// inside a transaction.
	GetForUpdate(ctx context.Context, productID, locationID, batchID uuid.UUID) (*OnHandRecord, error)
	Save(ctx context.Context, record *OnHandRecord) error
	// ListAvailable returns on-hand lines with quantity > 0 for a product at a
	// location, joined with their batches.
	ListAvailable(ctx context.Context, productID, locationID uuid.UUID) ([]OnHandLine, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]OnHandLine, error)
	// ListExpiringWithStock returns lines with quantity > 0 whose batch expiry
	// is non-nil and before the cutoff. With cutoff = now this is the
	// expired-with-stock list; with a future cutoff it is the expiry lookahead.
	ListExpiringWithStock(ctx context.Context, cutoff time.Time, productID *uuid.UUID) ([]OnHandLine, error)
}
