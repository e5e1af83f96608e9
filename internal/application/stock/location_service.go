package stock

import (
	"context"
	"errors"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocationService manages storage locations
type LocationService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewLocationService creates a location service
func NewLocationService(scope TransactionScope, logger *zap.Logger) *LocationService {
	return &LocationService{scope: scope, logger: logger}
}

// CreateLocation creates a new active location with a unique code
func (s *LocationService) CreateLocation(ctx context.Context, cmd CreateLocationCommand) (*stock.Location, error) {
	location, err := stock.NewLocation(cmd.Code, cmd.Name, cmd.Category)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		_, err := repos.Locations().FindByCode(ctx, location.Code)
		switch {
		case err == nil:
			return shared.ErrAlreadyExists
		case errors.Is(err, shared.ErrNotFound):
			// proceed
		default:
			return err
		}
		return repos.Locations().Create(ctx, location)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("location created",
		zap.String("location_id", location.ID.String()),
		zap.String("code", location.Code))
	return location, nil
}

// Deactivate soft-deactivates a location. Its movements and on-hand rows
// remain; new movements against it are rejected.
func (s *LocationService) Deactivate(ctx context.Context, id uuid.UUID) (*stock.Location, error) {
	return s.update(ctx, id, func(l *stock.Location) error { return l.Deactivate() })
}

// Activate re-activates a previously deactivated location
func (s *LocationService) Activate(ctx context.Context, id uuid.UUID) (*stock.Location, error) {
	return s.update(ctx, id, func(l *stock.Location) error { return l.Activate() })
}

// Rename updates a location's display name
func (s *LocationService) Rename(ctx context.Context, id uuid.UUID, name string) (*stock.Location, error) {
	return s.update(ctx, id, func(l *stock.Location) error { return l.Rename(name) })
}

// List returns locations, optionally only active ones
func (s *LocationService) List(ctx context.Context, activeOnly bool) ([]*stock.Location, error) {
	var locations []*stock.Location
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		locations, err = repos.Locations().List(ctx, activeOnly)
		return err
	})
	if err != nil {
		return nil, err
	}
	return locations, nil
}

func (s *LocationService) update(ctx context.Context, id uuid.UUID, mutate func(*stock.Location) error) (*stock.Location, error) {
	var location *stock.Location
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.Locations().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(found); err != nil {
			return err
		}
		location = found
		return repos.Locations().Update(ctx, found)
	})
	if err != nil {
		return nil, err
	}
	return location, nil
}
