package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusPlanned    TripStatus = "PLANNED"
	TripStatusDelayed    TripStatus = "DELAYED"
	TripStatusInProgress TripStatus = "IN_PROGRESS"
	TripStatusCompleted  TripStatus = "COMPLETED"
	TripStatusCancelled  TripStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed from the status.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// IsScheduled reports whether the trip has not been started yet.
func (s TripStatus) IsScheduled() bool {
	return s == TripStatusPlanned || s == TripStatusDelayed
}

// Valid reports whether s is a known status.
func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusPlanned, TripStatusDelayed, TripStatusInProgress, TripStatusCompleted, TripStatusCancelled:
		return true
	}
	return false
}

// NonTerminalStatuses lists the statuses that hold a reservation.
var NonTerminalStatuses = []TripStatus{TripStatusPlanned, TripStatusDelayed, TripStatusInProgress}

// Trip represents a haul executed by a truck, optionally with a trailer.
type Trip struct {
	ID          string
	Code        string
	Status      TripStatus
	Origin      string
	Destination string
	StartDate   time.Time
	EndDate     time.Time // zero while open-ended

	// Distance is the declared estimate until the trip completes, then the
	// odometer difference.
	Distance     float64
	StartMileage *float64
	EndMileage   *float64

	Revenue      float64
	FuelCost     float64
	TollCost     float64
	OtherCosts   float64
	TotalCost    float64
	Profit       float64
	ProfitMargin float64

	TruckID   string
	TrailerID string // empty when the truck travels without trailer
	DriverID  string
	ClientID  string
	Notes     string

	Legs []Leg

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Window returns the reservation window of the trip.
func (t *Trip) Window(now time.Time) Window {
	return ProvisionalWindow(t.StartDate, t.EndDate, now)
}

// CurrentLeg returns the ACTIVE or PAUSED leg, or nil.
func (t *Trip) CurrentLeg() *Leg {
	for i := len(t.Legs) - 1; i >= 0; i-- {
		if t.Legs[i].Status != LegStatusCompleted {
			return &t.Legs[i]
		}
	}
	return nil
}

// PausedLeg returns the PAUSED leg, or nil.
func (t *Trip) PausedLeg() *Leg {
	if leg := t.CurrentLeg(); leg != nil && leg.Status == LegStatusPaused {
		return leg
	}
	return nil
}

// IsPaused reports whether the trip is IN_PROGRESS with its trailer parked
// in a waiting leg.
func (t *Trip) IsPaused() bool {
	if t.Status != TripStatusInProgress {
		return false
	}
	leg := t.PausedLeg()
	return leg != nil && leg.Kind.IsWaiting()
}

// IsDriving reports whether the truck is currently running one of the trip's legs.
func (t *Trip) IsDriving() bool {
	if t.Status != TripStatusInProgress {
		return false
	}
	leg := t.CurrentLeg()
	return leg != nil && leg.Status == LegStatusActive
}

// Stage derives the workflow stage from the trip's legs.
func (t *Trip) Stage() Stage {
	return StageOf(t.Legs)
}

// ApplyCosts copies a cost breakdown onto the trip.
func (t *Trip) ApplyCosts(c CostBreakdown) {
	t.FuelCost = c.FuelCost
	t.TollCost = c.TollCost
	t.OtherCosts = c.OtherCosts
	t.TotalCost = c.TotalCost
	t.Profit = c.Profit
	t.ProfitMargin = c.ProfitMargin
}

// Clone returns a deep copy of the trip.
func (t *Trip) Clone() *Trip {
	c := *t
	if t.StartMileage != nil {
		v := *t.StartMileage
		c.StartMileage = &v
	}
	if t.EndMileage != nil {
		v := *t.EndMileage
		c.EndMileage = &v
	}
	if t.Legs != nil {
		c.Legs = make([]Leg, len(t.Legs))
		for i := range t.Legs {
			c.Legs[i] = t.Legs[i].Clone()
		}
	}
	return &c
}
