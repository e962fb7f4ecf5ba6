package repository

import (
	"context"
	"time"

	"fleet/internal/domain"
)

// TripFilter narrows a trip listing. Zero fields are ignored.
type TripFilter struct {
	Status  domain.TripStatus
	TruckID string
	Limit   int
}

// TripRepository defines the persistence operations for trips.
// Returned trips always carry their legs ordered by sequence.
type TripRepository interface {
	// Create persists a new trip without legs.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetForUpdate retrieves a trip by ID and locks it until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Trip, error)

	// List retrieves trips matching the filter, newest start date first.
	List(ctx context.Context, filter TripFilter) ([]*domain.Trip, error)

	// Update updates the scalar fields of an existing trip.
	Update(ctx context.Context, trip *domain.Trip) error

	// ListOpenByTruck retrieves the non-terminal trips of a truck.
	ListOpenByTruck(ctx context.Context, truckID string) ([]*domain.Trip, error)

	// ListOpenByDriver retrieves the non-terminal trips of a driver.
	ListOpenByDriver(ctx context.Context, driverID string) ([]*domain.Trip, error)

	// ListOpen retrieves every non-terminal trip.
	ListOpen(ctx context.Context) ([]*domain.Trip, error)

	// ListOpenByTrailer retrieves the non-terminal trips of a trailer.
	ListOpenByTrailer(ctx context.Context, trailerID string) ([]*domain.Trip, error)

	// MarkDelayed moves every PLANNED trip whose start date is before now
	// to DELAYED and returns the affected trip IDs.
	MarkDelayed(ctx context.Context, now time.Time) ([]string, error)
}

// LegRepository defines the persistence operations for trip legs.
type LegRepository interface {
	// Create appends a leg to its trip.
	Create(ctx context.Context, leg *domain.Leg) error

	// Update updates an existing leg.
	Update(ctx context.Context, leg *domain.Leg) error
}
