package repository

import (
	"context"

	"fleet/internal/domain"
)

// DriverRepository defines the lookups this core needs on drivers.
type DriverRepository interface {
	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetForUpdate retrieves a driver by ID and locks its row.
	GetForUpdate(ctx context.Context, id string) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)
}
