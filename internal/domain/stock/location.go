package stock

import (
	"strings"

	"github.com/dermaclinic/backend/internal/domain/shared"
)

// LocationCategory classifies a physical storage place
type LocationCategory string

const (
	LocationWarehouse LocationCategory = "WAREHOUSE"
	LocationCabinet   LocationCategory = "CABINET"
	LocationRoom      LocationCategory = "ROOM"
	LocationOther     LocationCategory = "OTHER"
)

// IsValid checks if the location category is valid
func (c LocationCategory) IsValid() bool {
	switch c {
	case LocationWarehouse, LocationCabinet, LocationRoom, LocationOther:
		return true
	}
	return false
}

// Location is a physical storage place for stock.
// Locations are soft-deactivated, never deleted, once referenced by movements.
type Location struct {
	shared.BaseAggregateRoot
	Code     string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name     string           `gorm:"type:varchar(200);not null"`
	Category LocationCategory `gorm:"type:varchar(20);not null"`
	Active   bool             `gorm:"not null;default:true"`
}

// TableName returns the database table name
func (Location) TableName() string {
	return "stock_locations"
}

// NewLocation creates a new active location
func NewLocation(code, name string, category LocationCategory) (*Location, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "location code is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "location name is required")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid location category: "+string(category))
	}

	return &Location{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Category:          category,
		Active:            true,
	}, nil
}

// Deactivate soft-deactivates the location. Existing movements and on-hand
// rows remain; new movements against this location are rejected.
func (l *Location) Deactivate() error {
	if !l.Active {
		return shared.ErrInvalidState
	}
	l.Active = false
	l.IncrementVersion()
	return nil
}

// Activate re-activates a previously deactivated location
func (l *Location) Activate() error {
	if l.Active {
		return shared.ErrInvalidState
	}
	l.Active = true
	l.IncrementVersion()
	return nil
}

// Rename updates the display name
func (l *Location) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_INPUT", "location name is required")
	}
	l.Name = name
	l.IncrementVersion()
	return nil
}
