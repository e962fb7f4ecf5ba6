package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// PauseRequest contains the parameters for pausing a trip.
type PauseRequest struct {
	TripID         string
	CurrentMileage *float64
	Location       string
	WaitingKind    domain.WaitingKind
}

// ResumeRequest contains the parameters for resuming a trip.
type ResumeRequest struct {
	TripID string

	// CurrentMileage is required only when the truck moved during the pause.
	CurrentMileage *float64
}

// LegManager owns the leg sequence of in-progress trips.
type LegManager struct {
	ledger    *MileageLedger
	allocator *ResourceAllocator
	clock     Clock
}

// NewLegManager creates a new LegManager.
func NewLegManager(ledger *MileageLedger, allocator *ResourceAllocator, clock Clock) *LegManager {
	return &LegManager{ledger: ledger, allocator: allocator, clock: clock}
}

// Open appends the first NORMAL leg of a trip that is being started.
func (m *LegManager) Open(ctx context.Context, s repository.Store, trip *domain.Trip, mileage float64) error {
	_, err := m.appendLeg(ctx, s, trip, domain.LegNormal, domain.LegStatusActive, mileage, trip.Origin)
	return err
}

// Pause closes the ACTIVE leg and parks the trailer in a WAITING leg.
// Afterwards the truck may be reserved by a different trip.
func (m *LegManager) Pause(ctx context.Context, s repository.Store, trip *domain.Trip, req PauseRequest) error {
	if trip.Status != domain.TripStatusInProgress {
		return invalidStatus("pause", trip.Status)
	}
	if !req.WaitingKind.Valid() {
		return ErrInvalidWaitingKind
	}
	if req.CurrentMileage == nil {
		return ErrMileageRequired
	}
	if req.Location == "" {
		return missingField("location")
	}

	current := trip.CurrentLeg()
	if current == nil {
		return fmt.Errorf("trip %s has no open leg: %w", trip.ID, ErrInvalidStatus)
	}
	if current.Status == domain.LegStatusPaused {
		return ErrAlreadyPaused
	}

	stage := trip.Stage()
	if allowed, ok := stage.AllowedWait(); !ok || allowed != req.WaitingKind {
		return fmt.Errorf("%s stage does not allow a %s wait: %w", stage, req.WaitingKind, ErrWrongStage)
	}

	mileage := *req.CurrentMileage
	if _, err := m.ledger.Record(ctx, s.Trucks(), trip.TruckID, trip.ID, mileage, domain.MileageSourcePause); err != nil {
		return err
	}

	current.Close(mileage, m.clock.now())
	if err := s.Legs().Update(ctx, current); err != nil {
		return err
	}

	kind, err := domain.WaitingLeg(req.WaitingKind)
	if err != nil {
		return ErrInvalidWaitingKind
	}
	_, err = m.appendLeg(ctx, s, trip, kind, domain.LegStatusPaused, mileage, req.Location)
	return err
}

// Resume closes the PAUSED leg and opens the next driving leg. When the
// truck's mileage advanced since the pause the caller must supply the new
// reading.
func (m *LegManager) Resume(ctx context.Context, s repository.Store, trip *domain.Trip, req ResumeRequest) error {
	paused := trip.PausedLeg()
	if trip.Status != domain.TripStatusInProgress || paused == nil {
		return ErrNotPaused
	}

	current, err := m.ledger.Current(ctx, s.Trucks(), trip.TruckID)
	if err != nil {
		return err
	}

	var mileage float64
	switch {
	case req.CurrentMileage != nil:
		mileage = *req.CurrentMileage
	case current > paused.StartMileage:
		return fmt.Errorf("truck %s moved from %.1f to %.1f during the pause: %w",
			trip.TruckID, paused.StartMileage, current, ErrMileageRequired)
	default:
		mileage = current
	}

	if err := m.allocator.CheckNotDriving(ctx, s, trip); err != nil {
		return err
	}

	if _, err := m.ledger.Record(ctx, s.Trucks(), trip.TruckID, trip.ID, mileage, domain.MileageSourceResume); err != nil {
		return err
	}

	paused.Close(mileage, m.clock.now())
	if err := s.Legs().Update(ctx, paused); err != nil {
		return err
	}

	_, err = m.appendLeg(ctx, s, trip, domain.ResumeLeg(paused.Kind), domain.LegStatusActive, mileage, paused.Location)
	return err
}

// CloseActive completes the ACTIVE leg of a trip that is being finished.
func (m *LegManager) CloseActive(ctx context.Context, s repository.Store, trip *domain.Trip, mileage float64) error {
	current := trip.CurrentLeg()
	if current == nil {
		return nil
	}
	if current.Status == domain.LegStatusPaused {
		return ErrLegPaused
	}
	current.Close(mileage, m.clock.now())
	return s.Legs().Update(ctx, current)
}

func (m *LegManager) appendLeg(
	ctx context.Context,
	s repository.Store,
	trip *domain.Trip,
	kind domain.LegKind,
	status domain.LegStatus,
	mileage float64,
	location string,
) (*domain.Leg, error) {
	seq := 1
	if n := len(trip.Legs); n > 0 {
		seq = trip.Legs[n-1].Seq + 1
	}

	leg := domain.Leg{
		ID:           uuid.New().String(),
		TripID:       trip.ID,
		Seq:          seq,
		Kind:         kind,
		Status:       status,
		StartMileage: mileage,
		Location:     location,
		StartedAt:    m.clock.now(),
	}
	if err := s.Legs().Create(ctx, &leg); err != nil {
		return nil, err
	}

	trip.Legs = append(trip.Legs, leg)
	return &trip.Legs[len(trip.Legs)-1], nil
}
