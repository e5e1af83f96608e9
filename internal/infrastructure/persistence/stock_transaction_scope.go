package persistence

import (
	"context"
	"fmt"
	"time"

	appstock "github.com/dermaclinic/backend/internal/application/stock"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"gorm.io/gorm"
)

// GormTransactionScope implements appstock.TransactionScope over a GORM
// transaction. Every ledger write path runs through Execute so the movement
// append and on-hand update commit or roll back together.
type GormTransactionScope struct {
	db *gorm.DB
	// lockTimeout is applied per transaction via SET LOCAL lock_timeout so a
	// blocked row lock fails fast with a retryable error instead of queueing
	// indefinitely
	lockTimeout time.Duration
}

// NewGormTransactionScope creates a transaction scope
func NewGormTransactionScope(db *gorm.DB, lockTimeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, lockTimeout: lockTimeout}
}

// Execute runs fn within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appstock.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(timeout).Error; err != nil {
				return err
			}
		}
		return fn(&gormRepositories{tx: tx})
	})
	return translateError(err)
}

// gormRepositories binds the repositories to one transaction
type gormRepositories struct {
	tx *gorm.DB
}

func (r *gormRepositories) Locations() stock.LocationRepository {
	return NewGormLocationRepository(r.tx)
}

func (r *gormRepositories) Batches() stock.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

func (r *gormRepositories) Movements() stock.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

func (r *gormRepositories) OnHand() stock.OnHandRepository {
	return NewGormOnHandRepository(r.tx)
}
