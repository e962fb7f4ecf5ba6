package service

import (
	"context"
	"fmt"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// StartRequest contains the parameters for starting a trip.
type StartRequest struct {
	TripID string

	// TrailerID replaces the trip's trailer when set.
	TrailerID string
}

// FinishRequest contains the parameters for finishing a trip.
type FinishRequest struct {
	TripID     string
	EndMileage *float64
}

// TripStateMachine drives trip status transitions. Every transition runs as
// one unit of work holding the trip row and the resource rows it touches.
type TripStateMachine struct {
	mutator
	allocator *ResourceAllocator
	ledger    *MileageLedger
	legs      *LegManager
	costs     *CostEngine
}

// NewTripStateMachine creates a new TripStateMachine.
func NewTripStateMachine(
	deps Deps,
	allocator *ResourceAllocator,
	ledger *MileageLedger,
	legs *LegManager,
	costs *CostEngine,
) *TripStateMachine {
	return &TripStateMachine{
		mutator:   mutator{deps: deps.withDefaults()},
		allocator: allocator,
		ledger:    ledger,
		legs:      legs,
		costs:     costs,
	}
}

// Start moves a PLANNED or DELAYED trip to IN_PROGRESS, records the start
// mileage and opens the first leg.
func (m *TripStateMachine) Start(ctx context.Context, req StartRequest) (*domain.Trip, error) {
	return m.mutate(ctx, "start", req.TripID, domain.EventTripStarted, func(ctx context.Context, s repository.Store, trip *domain.Trip) error {
		if !trip.Status.IsScheduled() {
			return invalidStatus("start", trip.Status)
		}

		truck, err := s.Trucks().GetForUpdate(ctx, trip.TruckID)
		if err != nil {
			return wrapNotFound(err, "truck", trip.TruckID)
		}
		if _, err := s.Drivers().GetForUpdate(ctx, trip.DriverID); err != nil {
			return wrapNotFound(err, "driver", trip.DriverID)
		}

		trailerID := trip.TrailerID
		if req.TrailerID != "" {
			trailerID = req.TrailerID
		}
		if !truck.HasCapacity && trailerID == "" {
			return ErrTrailerRequired
		}
		if trailerID != "" {
			if err := m.allocator.CheckTrailer(ctx, s, trailerID, trip.Window(m.deps.Clock.now()), trip.ID); err != nil {
				return err
			}
		}

		if err := m.allocator.CheckNotDriving(ctx, s, trip); err != nil {
			return err
		}

		if _, err := m.ledger.Record(ctx, s.Trucks(), truck.ID, trip.ID, truck.CurrentMileage, domain.MileageSourceStart); err != nil {
			return err
		}

		startMileage := truck.CurrentMileage
		trip.TrailerID = trailerID
		trip.StartMileage = &startMileage
		trip.Status = domain.TripStatusInProgress

		return m.legs.Open(ctx, s, trip, startMileage)
	})
}

// Pause parks the trailer in a WAITING leg.
func (m *TripStateMachine) Pause(ctx context.Context, req PauseRequest) (*domain.Trip, error) {
	return m.mutate(ctx, "pause", req.TripID, domain.EventTripPaused, func(ctx context.Context, s repository.Store, trip *domain.Trip) error {
		return m.legs.Pause(ctx, s, trip, req)
	})
}

// Resume reattaches the truck to its paused trip.
func (m *TripStateMachine) Resume(ctx context.Context, req ResumeRequest) (*domain.Trip, error) {
	return m.mutate(ctx, "resume", req.TripID, domain.EventTripResumed, func(ctx context.Context, s repository.Store, trip *domain.Trip) error {
		return m.legs.Resume(ctx, s, trip, req)
	})
}

// Finish completes an IN_PROGRESS trip in the returning stage and freezes
// its distance and cost figures.
func (m *TripStateMachine) Finish(ctx context.Context, req FinishRequest) (*domain.Trip, error) {
	return m.mutate(ctx, "finish", req.TripID, domain.EventTripCompleted, func(ctx context.Context, s repository.Store, trip *domain.Trip) error {
		if trip.Status != domain.TripStatusInProgress {
			return invalidStatus("finish", trip.Status)
		}
		if req.EndMileage == nil {
			return ErrMileageRequired
		}
		if trip.IsPaused() {
			return ErrLegPaused
		}
		if stage := trip.Stage(); stage != domain.StageReturning {
			return fmt.Errorf("cannot finish in %s stage: %w", stage, ErrWrongStage)
		}

		end := *req.EndMileage
		if trip.StartMileage != nil && end < *trip.StartMileage {
			return fmt.Errorf("end mileage %.1f is below start mileage %.1f: %w", end, *trip.StartMileage, ErrMileageRegression)
		}

		truck, err := m.ledger.Record(ctx, s.Trucks(), trip.TruckID, trip.ID, end, domain.MileageSourceFinish)
		if err != nil {
			return err
		}

		if err := m.legs.CloseActive(ctx, s, trip, end); err != nil {
			return err
		}

		if trip.StartMileage != nil {
			trip.Distance = end - *trip.StartMileage
		}
		trip.EndMileage = &end
		trip.EndDate = m.deps.Clock.now()

		expenses, err := s.Expenses().ListByTrip(ctx, trip.ID)
		if err != nil {
			return err
		}
		price, err := m.deps.Settings.DieselPrice(ctx, s.Settings())
		if err != nil {
			return err
		}

		trip.ApplyCosts(m.costs.ComputeFinal(trip, truck, expenses, price))
		trip.Status = domain.TripStatusCompleted
		return nil
	})
}

// Cancel moves a PLANNED or DELAYED trip to CANCELLED, releasing its
// reservation.
func (m *TripStateMachine) Cancel(ctx context.Context, tripID string) (*domain.Trip, error) {
	return m.mutate(ctx, "cancel", tripID, domain.EventTripCancelled, func(ctx context.Context, s repository.Store, trip *domain.Trip) error {
		if !trip.Status.IsScheduled() {
			return invalidStatus("cancel", trip.Status)
		}
		trip.Status = domain.TripStatusCancelled
		return nil
	})
}
