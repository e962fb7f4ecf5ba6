package domain

import "time"

// EventType represents the kind of trip event published after a commit.
type EventType string

const (
	EventTripCreated     EventType = "TRIP_CREATED"
	EventTripRescheduled EventType = "TRIP_RESCHEDULED"
	EventTripStarted     EventType = "TRIP_STARTED"
	EventTripPaused      EventType = "TRIP_PAUSED"
	EventTripResumed     EventType = "TRIP_RESUMED"
	EventTripCompleted   EventType = "TRIP_COMPLETED"
	EventTripCancelled   EventType = "TRIP_CANCELLED"
	EventTripDelayed     EventType = "TRIP_DELAYED"
)

// TripEvent is the payload delivered to notification publishers.
type TripEvent struct {
	ID         string                 `json:"id"`
	Type       EventType              `json:"type"`
	TripID     string                 `json:"trip_id"`
	TripCode   string                 `json:"trip_code,omitempty"`
	Status     TripStatus             `json:"status,omitempty"`
	TruckID    string                 `json:"truck_id,omitempty"`
	DriverID   string                 `json:"driver_id,omitempty"`
	TrailerID  string                 `json:"trailer_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}
