package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// Clock returns the current time. A nil Clock means time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// MileageLedger is the only writer of a truck's current mileage.
// Accepted readings never decrease.
type MileageLedger struct {
	clock Clock
}

// NewMileageLedger creates a new MileageLedger.
func NewMileageLedger(clock Clock) *MileageLedger {
	return &MileageLedger{clock: clock}
}

// Record validates a reading against the truck's current mileage and, when
// accepted, advances the truck and appends it to the mileage history. It
// must run inside the caller's unit of work.
func (l *MileageLedger) Record(
	ctx context.Context,
	trucks repository.TruckRepository,
	truckID, tripID string,
	mileage float64,
	source domain.MileageSource,
) (*domain.Truck, error) {
	if mileage < 0 || math.IsNaN(mileage) || math.IsInf(mileage, 0) {
		return nil, ErrInvalidMileage
	}

	truck, err := trucks.GetForUpdate(ctx, truckID)
	if err != nil {
		return nil, wrapNotFound(err, "truck", truckID)
	}

	if mileage < truck.CurrentMileage {
		return nil, fmt.Errorf("truck %s is at %.1f, got %.1f: %w", truckID, truck.CurrentMileage, mileage, ErrStaleMileage)
	}

	reading := domain.MileageReading{
		TruckID:    truckID,
		TripID:     tripID,
		Mileage:    mileage,
		Source:     source,
		RecordedAt: l.clock.now(),
	}
	if err := trucks.UpdateMileage(ctx, reading); err != nil {
		return nil, err
	}

	truck.CurrentMileage = mileage
	return truck, nil
}

// Current returns the truck's last accepted mileage and locks the truck
// until the surrounding unit of work ends.
func (l *MileageLedger) Current(ctx context.Context, trucks repository.TruckRepository, truckID string) (float64, error) {
	truck, err := trucks.GetForUpdate(ctx, truckID)
	if err != nil {
		return 0, wrapNotFound(err, "truck", truckID)
	}
	return truck.CurrentMileage, nil
}
