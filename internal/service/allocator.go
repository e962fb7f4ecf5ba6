package service

import (
	"context"
	"time"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// Reservation describes the resources and window a trip wants to hold.
type Reservation struct {
	TruckID   string
	DriverID  string
	TrailerID string        // optional
	Window    domain.Window // zero End means open-ended

	// ExcludeTripID skips the trip being rescheduled.
	ExcludeTripID string
}

// ResourceAllocator decides whether trucks, drivers and trailers can be
// booked for a window.
//
// A truck is free when it has no overlapping non-terminal trip, or exactly
// one whose trailer is parked in a PAUSED waiting leg. A driver is free only
// when no overlapping non-terminal trip exists at all. A trailer is free when
// it is active and no other open trip is using it now or holds it for an
// overlapping window.
type ResourceAllocator struct {
	clock Clock
}

// NewResourceAllocator creates a new ResourceAllocator.
func NewResourceAllocator(clock Clock) *ResourceAllocator {
	return &ResourceAllocator{clock: clock}
}

// Reserve checks the reservation against all non-terminal trips. It locks
// the truck, then the driver, then the trailer so concurrent reservations
// for the same resources serialize. It must run inside the unit of work
// that persists the trip.
func (a *ResourceAllocator) Reserve(ctx context.Context, s repository.Store, r Reservation) error {
	now := a.clock.now()
	window := domain.ProvisionalWindow(r.Window.Start, r.Window.End, now)

	if _, err := s.Trucks().GetForUpdate(ctx, r.TruckID); err != nil {
		return wrapNotFound(err, "truck", r.TruckID)
	}
	if _, err := s.Drivers().GetForUpdate(ctx, r.DriverID); err != nil {
		return wrapNotFound(err, "driver", r.DriverID)
	}

	truckTrips, err := s.Trips().ListOpenByTruck(ctx, r.TruckID)
	if err != nil {
		return err
	}
	if t := truckBlocker(truckTrips, window, now, r.ExcludeTripID); t != nil {
		return &ConflictError{Resource: ResourceTruck, ResourceID: r.TruckID, TripID: t.ID}
	}

	driverTrips, err := s.Trips().ListOpenByDriver(ctx, r.DriverID)
	if err != nil {
		return err
	}
	for _, t := range driverTrips {
		if t.ID == r.ExcludeTripID {
			continue
		}
		if t.Window(now).Overlaps(window) {
			return &ConflictError{Resource: ResourceDriver, ResourceID: r.DriverID, TripID: t.ID}
		}
	}

	if r.TrailerID != "" {
		return a.CheckTrailer(ctx, s, r.TrailerID, window, r.ExcludeTripID)
	}
	return nil
}

// truckBlocker returns the trip that keeps the truck from taking window, or
// nil. One overlapping paused trip may share the truck; anything beyond that
// blocks it.
func truckBlocker(trips []*domain.Trip, window domain.Window, now time.Time, excludeTripID string) *domain.Trip {
	var parked *domain.Trip
	for _, t := range trips {
		if t.ID == excludeTripID || !t.Window(now).Overlaps(window) {
			continue
		}
		if !t.IsPaused() || parked != nil {
			return t
		}
		parked = t
	}
	return nil
}

// trailerBusy reports whether t keeps its trailer from being used in window.
// A parked or moving trailer is busy whatever the window.
func trailerBusy(t *domain.Trip, window domain.Window, now time.Time) bool {
	return t.IsPaused() || t.IsDriving() || t.Window(now).Overlaps(window)
}

// CheckTrailer locks a trailer and verifies it is active and free for
// window. Trips other than excludeTripID block it while paused or driving,
// or when their window overlaps.
func (a *ResourceAllocator) CheckTrailer(ctx context.Context, s repository.Store, trailerID string, window domain.Window, excludeTripID string) error {
	trailer, err := s.Trailers().GetForUpdate(ctx, trailerID)
	if err != nil {
		return wrapNotFound(err, "trailer", trailerID)
	}
	if !trailer.Active {
		return &ConflictError{Resource: ResourceTrailer, ResourceID: trailerID}
	}

	trips, err := s.Trips().ListOpenByTrailer(ctx, trailerID)
	if err != nil {
		return err
	}
	now := a.clock.now()
	for _, t := range trips {
		if t.ID != excludeTripID && trailerBusy(t, window, now) {
			return &ConflictError{Resource: ResourceTrailer, ResourceID: trailerID, TripID: t.ID}
		}
	}
	return nil
}

// CheckNotDriving verifies that neither the truck nor the driver of trip is
// busy on another trip right now. Starting and resuming use it in addition
// to the reservation made at creation time, since a pause lets a second
// trip take the truck.
func (a *ResourceAllocator) CheckNotDriving(ctx context.Context, s repository.Store, trip *domain.Trip) error {
	truckTrips, err := s.Trips().ListOpenByTruck(ctx, trip.TruckID)
	if err != nil {
		return err
	}
	for _, t := range truckTrips {
		if t.ID != trip.ID && t.IsDriving() {
			return &ConflictError{Resource: ResourceTruck, ResourceID: trip.TruckID, TripID: t.ID}
		}
	}

	driverTrips, err := s.Trips().ListOpenByDriver(ctx, trip.DriverID)
	if err != nil {
		return err
	}
	for _, t := range driverTrips {
		if t.ID != trip.ID && t.IsDriving() {
			return &ConflictError{Resource: ResourceDriver, ResourceID: trip.DriverID, TripID: t.ID}
		}
	}
	return nil
}

// Availability lists the resources that a new trip could reserve for window.
type Availability struct {
	Window   domain.Window
	Trucks   []*domain.Truck
	Drivers  []*domain.Driver
	Trailers []*domain.Trailer
}

// Availability applies the reservation rules to every known resource.
func (a *ResourceAllocator) Availability(ctx context.Context, s repository.Store, window domain.Window) (*Availability, error) {
	now := a.clock.now()
	window = domain.ProvisionalWindow(window.Start, window.End, now)

	open, err := s.Trips().ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	byTruck := make(map[string][]*domain.Trip)
	busyDrivers := make(map[string]bool)
	busyTrailers := make(map[string]bool)
	for _, t := range open {
		byTruck[t.TruckID] = append(byTruck[t.TruckID], t)
		if t.TrailerID != "" && trailerBusy(t, window, now) {
			busyTrailers[t.TrailerID] = true
		}
		if t.Window(now).Overlaps(window) {
			busyDrivers[t.DriverID] = true
		}
	}
	busyTrucks := make(map[string]bool)
	for truckID, trips := range byTruck {
		if truckBlocker(trips, window, now, "") != nil {
			busyTrucks[truckID] = true
		}
	}

	result := &Availability{Window: window}

	trucks, err := s.Trucks().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range trucks {
		if !busyTrucks[t.ID] {
			result.Trucks = append(result.Trucks, t)
		}
	}

	drivers, err := s.Drivers().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range drivers {
		if !busyDrivers[d.ID] {
			result.Drivers = append(result.Drivers, d)
		}
	}

	trailers, err := s.Trailers().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range trailers {
		if t.Active && !busyTrailers[t.ID] {
			result.Trailers = append(result.Trailers, t)
		}
	}

	return result, nil
}
