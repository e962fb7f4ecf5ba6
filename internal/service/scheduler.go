package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// CreateTripRequest contains the parameters for creating a trip.
type CreateTripRequest struct {
	TruckID     string
	DriverID    string
	TrailerID   string
	ClientID    string
	Origin      string
	Destination string
	StartDate   time.Time
	EndDate     time.Time // zero for an open-ended trip
	Distance    float64   // estimate
	Revenue     float64
	Notes       string
}

func (r CreateTripRequest) validate() error {
	switch {
	case r.TruckID == "":
		return missingField("truck_id")
	case r.DriverID == "":
		return missingField("driver_id")
	case r.Origin == "":
		return missingField("origin")
	case r.Destination == "":
		return missingField("destination")
	case r.StartDate.IsZero():
		return missingField("start_date")
	}
	if r.Distance < 0 || r.Revenue < 0 {
		return ErrInvalidAmount
	}
	if !r.EndDate.IsZero() && !r.EndDate.After(r.StartDate) {
		return ErrInvalidWindow
	}
	return nil
}

// RescheduleRequest changes the plan of a trip that has not started.
// Nil fields are left unchanged.
type RescheduleRequest struct {
	TripID    string
	StartDate *time.Time
	EndDate   *time.Time // a zero value makes the trip open-ended
	DriverID  *string
	TrailerID *string // an empty value detaches the trailer
	Distance  *float64
	Revenue   *float64
	Notes     *string
}

// TripScheduler is the entry point for planning trips.
type TripScheduler struct {
	mutator
	allocator *ResourceAllocator
	trips     *TripStateMachine
}

// NewTripScheduler creates a new TripScheduler.
func NewTripScheduler(deps Deps, allocator *ResourceAllocator, trips *TripStateMachine) *TripScheduler {
	return &TripScheduler{
		mutator:   mutator{deps: deps.withDefaults()},
		allocator: allocator,
		trips:     trips,
	}
}

// Create validates the request, reserves its resources and persists a
// PLANNED trip with no legs.
func (s *TripScheduler) Create(ctx context.Context, req CreateTripRequest) (trip *domain.Trip, err error) {
	start := time.Now()
	defer func() {
		fields := logrus.Fields{"truck_id": req.TruckID, "driver_id": req.DriverID}
		if trip != nil {
			fields["trip_id"] = trip.ID
		}
		observe(s.deps.Logger, s.deps.Observer, "create", fields, start, err)
	}()

	if err := req.validate(); err != nil {
		return nil, err
	}

	seg := startSegment(ctx, "trip.create")
	defer endSegment(seg)

	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		err := s.allocator.Reserve(ctx, st, Reservation{
			TruckID:   req.TruckID,
			DriverID:  req.DriverID,
			TrailerID: req.TrailerID,
			Window:    domain.Window{Start: req.StartDate, End: req.EndDate},
		})
		if err != nil {
			return err
		}

		now := s.deps.Clock.now()
		id := uuid.New().String()
		trip = &domain.Trip{
			ID:          id,
			Code:        tripCode(id),
			Status:      domain.TripStatusPlanned,
			Origin:      req.Origin,
			Destination: req.Destination,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Distance:    req.Distance,
			Revenue:     req.Revenue,
			TruckID:     req.TruckID,
			TrailerID:   req.TrailerID,
			DriverID:    req.DriverID,
			ClientID:    req.ClientID,
			Notes:       req.Notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return st.Trips().Create(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, domain.EventTripCreated, trip)
	return trip, nil
}

// tripCode derives a short human-readable code from a trip ID.
func tripCode(id string) string {
	return "TRP-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:8])
}

// Cancel cancels a trip that has not started.
func (s *TripScheduler) Cancel(ctx context.Context, tripID string) (*domain.Trip, error) {
	return s.trips.Cancel(ctx, tripID)
}

// Reschedule changes the window or resources of a PLANNED or DELAYED trip
// and reserves them again. A DELAYED trip moved to a future start becomes
// PLANNED.
func (s *TripScheduler) Reschedule(ctx context.Context, req RescheduleRequest) (*domain.Trip, error) {
	return s.mutate(ctx, "reschedule", req.TripID, domain.EventTripRescheduled, func(ctx context.Context, st repository.Store, trip *domain.Trip) error {
		if !trip.Status.IsScheduled() {
			return invalidStatus("reschedule", trip.Status)
		}

		if req.StartDate != nil {
			if req.StartDate.IsZero() {
				return missingField("start_date")
			}
			trip.StartDate = *req.StartDate
		}
		if req.EndDate != nil {
			trip.EndDate = *req.EndDate
		}
		if req.DriverID != nil {
			if *req.DriverID == "" {
				return missingField("driver_id")
			}
			trip.DriverID = *req.DriverID
		}
		if req.TrailerID != nil {
			trip.TrailerID = *req.TrailerID
		}
		if req.Distance != nil {
			trip.Distance = *req.Distance
		}
		if req.Revenue != nil {
			trip.Revenue = *req.Revenue
		}
		if req.Notes != nil {
			trip.Notes = *req.Notes
		}

		if trip.Distance < 0 || trip.Revenue < 0 {
			return ErrInvalidAmount
		}
		if !trip.EndDate.IsZero() && !trip.EndDate.After(trip.StartDate) {
			return ErrInvalidWindow
		}

		err := s.allocator.Reserve(ctx, st, Reservation{
			TruckID:       trip.TruckID,
			DriverID:      trip.DriverID,
			TrailerID:     trip.TrailerID,
			Window:        domain.Window{Start: trip.StartDate, End: trip.EndDate},
			ExcludeTripID: trip.ID,
		})
		if err != nil {
			return err
		}

		if trip.Status == domain.TripStatusDelayed && trip.StartDate.After(s.deps.Clock.now()) {
			trip.Status = domain.TripStatusPlanned
		}
		return nil
	})
}

// MarkDelayed moves every PLANNED trip whose start date has passed to
// DELAYED. It is idempotent and returns the affected trip IDs.
func (s *TripScheduler) MarkDelayed(ctx context.Context) (ids []string, err error) {
	start := time.Now()
	defer func() {
		observe(s.deps.Logger, s.deps.Observer, "mark_delayed", logrus.Fields{"count": len(ids)}, start, err)
	}()

	var delayed []*domain.Trip
	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		marked, err := st.Trips().MarkDelayed(ctx, s.deps.Clock.now())
		if err != nil {
			return err
		}

		ids = marked
		delayed = delayed[:0]
		for _, id := range marked {
			t, err := st.Trips().GetByID(ctx, id)
			if err != nil {
				return err
			}
			delayed = append(delayed, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Observer.ObserveDelayed(len(ids))
	if len(delayed) > 0 {
		s.afterCommit(ctx, domain.EventTripDelayed, delayed...)
	}
	return ids, nil
}

// Get retrieves a trip with its legs.
func (s *TripScheduler) Get(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, missingField("trip_id")
	}

	cacheable := false
	var version int64
	if s.deps.Cache != nil {
		cached, err := s.deps.Cache.GetTrip(ctx, tripID)
		if err != nil {
			s.deps.Logger.WithError(err).Warn("Trip cache read failed")
		} else if cached != nil {
			return cached, nil
		}

		if version, err = s.deps.Cache.TripVersion(ctx, tripID); err != nil {
			s.deps.Logger.WithError(err).Warn("Trip cache read failed")
		} else {
			cacheable = true
		}
	}

	var trip *domain.Trip
	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		trip, err = st.Trips().GetByID(ctx, tripID)
		return wrapNotFound(err, "trip", tripID)
	})
	if err != nil {
		return nil, err
	}

	if cacheable {
		stored, err := s.deps.Cache.SetTrip(ctx, trip, version)
		if err != nil {
			s.deps.Logger.WithError(err).Warn("Trip cache write failed")
		} else if !stored {
			s.deps.Logger.WithField("trip_id", tripID).Debug("Trip changed during read, snapshot not cached")
		}
	}
	return trip, nil
}

// List retrieves trips matching the filter.
func (s *TripScheduler) List(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError("INVALID_STATUS_FILTER", "unknown trip status "+string(filter.Status))
	}

	var trips []*domain.Trip
	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		trips, err = st.Trips().List(ctx, filter)
		return err
	})
	return trips, err
}

// Availability lists the trucks, drivers and trailers a new trip could
// reserve for the window.
func (s *TripScheduler) Availability(ctx context.Context, window domain.Window) (*Availability, error) {
	if window.Start.IsZero() {
		return nil, missingField("start")
	}
	if !window.End.IsZero() && !window.End.After(window.Start) {
		return nil, ErrInvalidWindow
	}

	var result *Availability
	err := s.deps.Tx.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		result, err = s.allocator.Availability(ctx, st, window)
		return err
	})
	return result, err
}
