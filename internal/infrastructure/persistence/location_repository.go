package persistence

import (
	"context"
	"strings"

	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLocationRepository is the GORM implementation of stock.LocationRepository
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a location repository
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// Create inserts a new location
func (r *GormLocationRepository) Create(ctx context.Context, location *stock.Location) error {
	return translateError(r.db.WithContext(ctx).Create(location).Error)
}

// Update saves changes to an existing location
func (r *GormLocationRepository) Update(ctx context.Context, location *stock.Location) error {
	return translateError(r.db.WithContext(ctx).Save(location).Error)
}

// FindByID retrieves a location by ID
func (r *GormLocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Location, error) {
	var location stock.Location
	if err := r.db.WithContext(ctx).First(&location, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &location, nil
}

// FindByCode retrieves a location by its unique code
func (r *GormLocationRepository) FindByCode(ctx context.Context, code string) (*stock.Location, error) {
	var location stock.Location
	if err := r.db.WithContext(ctx).First(&location, "code = ?", strings.ToUpper(code)).Error; err != nil {
		return nil, translateError(err)
	}
	return &location, nil
}

// List returns locations ordered by code, optionally only active ones
func (r *GormLocationRepository) List(ctx context.Context, activeOnly bool) ([]*stock.Location, error) {
	query := r.db.WithContext(ctx).Order("code asc")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var locations []*stock.Location
	if err := query.Find(&locations).Error; err != nil {
		return nil, translateError(err)
	}
	return locations, nil
}
