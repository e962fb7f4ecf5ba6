package service

import (
	"errors"
	"fmt"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// Error kinds. Every domain error unwraps to exactly one of them.
var (
	// ErrValidation marks a malformed or inconsistent request.
	ErrValidation = errors.New("validation error")

	// ErrConflict marks a resource that is already booked.
	ErrConflict = errors.New("conflict")

	// ErrState marks a transition not allowed in the trip's current state.
	ErrState = errors.New("state error")
)

// Error is a domain error with a stable code.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the error kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

func validationError(code, message string) *Error {
	return &Error{Kind: ErrValidation, Code: code, Message: message}
}

func stateError(code, message string) *Error {
	return &Error{Kind: ErrState, Code: code, Message: message}
}

var (
	// ErrTrailerRequired is returned when a truck without capacity starts without trailer.
	ErrTrailerRequired = validationError("TRAILER_REQUIRED", "truck without cargo capacity requires a trailer")

	// ErrMileageRequired is returned when a mileage reading must be supplied.
	ErrMileageRequired = validationError("MILEAGE_REQUIRED", "current mileage is required")

	// ErrMileageRegression is returned when a trip would end below its start mileage.
	ErrMileageRegression = validationError("MILEAGE_REGRESSION", "end mileage is lower than start mileage")

	// ErrStaleMileage is returned when a reading is lower than the truck's last known mileage.
	ErrStaleMileage = validationError("STALE_MILEAGE", "mileage is lower than the truck's current mileage")

	// ErrInvalidMileage is returned for negative or non-finite readings.
	ErrInvalidMileage = validationError("INVALID_MILEAGE", "mileage must be a finite non-negative number")

	// ErrInvalidWindow is returned when the end date is not after the start date.
	ErrInvalidWindow = validationError("INVALID_WINDOW", "end date must be after start date")

	// ErrInvalidAmount is returned for negative revenue or distance.
	ErrInvalidAmount = validationError("INVALID_AMOUNT", "amounts must be non-negative")

	// ErrInvalidWaitingKind is returned when a pause names an unknown waiting kind.
	ErrInvalidWaitingKind = validationError("INVALID_WAITING_KIND", "waiting kind must be LOADING or UNLOADING")

	// ErrWrongStage is returned when the workflow stage does not allow the operation.
	ErrWrongStage = stateError("WRONG_STAGE", "operation not allowed in the current workflow stage")

	// ErrLegPaused is returned when finishing a trip whose current leg is paused.
	ErrLegPaused = stateError("LEG_PAUSED", "current leg is paused")

	// ErrAlreadyPaused is returned when pausing a trip that already has a paused leg.
	ErrAlreadyPaused = stateError("ALREADY_PAUSED", "trip already has a paused leg")

	// ErrNotPaused is returned when resuming a trip without a paused leg.
	ErrNotPaused = stateError("NOT_PAUSED", "trip has no paused leg")

	// ErrInvalidStatus is returned when the trip status does not allow the operation.
	ErrInvalidStatus = stateError("INVALID_STATUS", "operation not allowed in the current trip status")
)

// missingField reports a required request field that was left empty.
func missingField(name string) error {
	return validationError("MISSING_FIELD", name+" is required")
}

// invalidStatus wraps ErrInvalidStatus with the offending operation and status.
func invalidStatus(op string, status domain.TripStatus) error {
	return fmt.Errorf("cannot %s a %s trip: %w", op, status, ErrInvalidStatus)
}

// Resource names a bookable resource.
type Resource string

const (
	ResourceTruck   Resource = "truck"
	ResourceDriver  Resource = "driver"
	ResourceTrailer Resource = "trailer"
)

// ConflictError reports a double-booking.
type ConflictError struct {
	Resource   Resource
	ResourceID string
	TripID     string // the conflicting trip, empty when the resource is inactive
}

func (e *ConflictError) Error() string {
	if e.TripID == "" {
		return fmt.Sprintf("CONFLICT: %s %s is not available", e.Resource, e.ResourceID)
	}
	return fmt.Sprintf("CONFLICT: %s %s is booked by trip %s", e.Resource, e.ResourceID, e.TripID)
}

// Unwrap returns ErrConflict.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// CodeOf returns the stable code of a domain error, or "" for other errors.
func CodeOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return "CONFLICT"
	}
	if errors.Is(err, repository.ErrNotFound) {
		return "NOT_FOUND"
	}
	return ""
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, repository.ErrNotFound)
}

// wrapNotFound adds the entity name to a not-found error.
func wrapNotFound(err error, entity, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(entity, id)
	}
	return err
}
