package stock

import (
	"context"

	"github.com/dermaclinic/backend/internal/domain/stock"
)

// TransactionalRepositories exposes the stock repositories bound to one
// database transaction
type TransactionalRepositories interface {
	Locations() stock.LocationRepository
	Batches() stock.BatchRepository
	Movements() stock.MovementRepository
	OnHand() stock.OnHandRepository
}

// TransactionScope executes a function within a database transaction.
// The transaction commits if fn returns nil and rolls back otherwise; no
// partial effects survive a failed multi-step operation.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// NoOpTransactionScope runs fn against plain repositories without a real
// transaction. Used in unit tests with in-memory fakes.
type NoOpTransactionScope struct {
	Repos TransactionalRepositories
}

// NewNoOpTransactionScope creates a scope over the given repositories
func NewNoOpTransactionScope(repos TransactionalRepositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{Repos: repos}
}

// Execute runs fn directly without transactional semantics
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.Repos)
}
