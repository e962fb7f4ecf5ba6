package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fleet/internal/domain"
	"fleet/internal/repository"
	"fleet/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	scheduler *service.TripScheduler
	trips     *service.TripStateMachine
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(scheduler *service.TripScheduler, trips *service.TripStateMachine) *TripHandler {
	return &TripHandler{scheduler: scheduler, trips: trips}
}

// CreateTripRequest is the body of POST /v1/trips.
type CreateTripRequest struct {
	TruckID     string     `json:"truck_id"`
	DriverID    string     `json:"driver_id"`
	TrailerID   string     `json:"trailer_id"`
	ClientID    string     `json:"client_id"`
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Distance    float64    `json:"distance"`
	Revenue     float64    `json:"revenue"`
	Notes       string     `json:"notes"`
}

// RescheduleTripRequest is the body of PATCH /v1/trips/:id.
type RescheduleTripRequest struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	OpenEnded bool       `json:"open_ended"`
	DriverID  *string    `json:"driver_id"`
	TrailerID *string    `json:"trailer_id"`
	Distance  *float64   `json:"distance"`
	Revenue   *float64   `json:"revenue"`
	Notes     *string    `json:"notes"`
}

// StartTripRequest is the optional body of POST /v1/trips/:id/start.
type StartTripRequest struct {
	TrailerID string `json:"trailer_id"`
}

// PauseTripRequest is the body of POST /v1/trips/:id/pause.
type PauseTripRequest struct {
	CurrentMileage *float64 `json:"current_mileage"`
	Location       string   `json:"location"`
	WaitingKind    string   `json:"waiting_kind"`
}

// ResumeTripRequest is the optional body of POST /v1/trips/:id/resume.
type ResumeTripRequest struct {
	CurrentMileage *float64 `json:"current_mileage"`
}

// FinishTripRequest is the body of POST /v1/trips/:id/finish.
type FinishTripRequest struct {
	EndMileage *float64 `json:"end_mileage"`
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_BODY", err)
		return
	}

	in := service.CreateTripRequest{
		TruckID:     req.TruckID,
		DriverID:    req.DriverID,
		TrailerID:   req.TrailerID,
		ClientID:    req.ClientID,
		Origin:      req.Origin,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		Distance:    req.Distance,
		Revenue:     req.Revenue,
		Notes:       req.Notes,
	}
	if req.EndDate != nil {
		in.EndDate = *req.EndDate
	}

	trip, err := h.scheduler.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newTripResponse(trip))
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.scheduler.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// ListTrips handles GET /v1/trips?status=&truck_id=&limit=
func (h *TripHandler) ListTrips(c *gin.Context) {
	filter := repository.TripFilter{
		Status:  domain.TripStatus(c.Query("status")),
		TruckID: c.Query("truck_id"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondBadRequest(c, "INVALID_QUERY", errInvalidQuery("limit"))
			return
		}
		filter.Limit = limit
	}

	trips, err := h.scheduler.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripListResponse(trips))
}

// RescheduleTrip handles PATCH /v1/trips/:id
func (h *TripHandler) RescheduleTrip(c *gin.Context) {
	var req RescheduleTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_BODY", err)
		return
	}

	in := service.RescheduleRequest{
		TripID:    c.Param("id"),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		DriverID:  req.DriverID,
		TrailerID: req.TrailerID,
		Distance:  req.Distance,
		Revenue:   req.Revenue,
		Notes:     req.Notes,
	}
	if req.OpenEnded {
		var open time.Time
		in.EndDate = &open
	}

	trip, err := h.scheduler.Reschedule(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// StartTrip handles POST /v1/trips/:id/start
func (h *TripHandler) StartTrip(c *gin.Context) {
	var req StartTripRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBadRequest(c, "INVALID_BODY", err)
		return
	}

	trip, err := h.trips.Start(c.Request.Context(), service.StartRequest{
		TripID:    c.Param("id"),
		TrailerID: req.TrailerID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// PauseTrip handles POST /v1/trips/:id/pause
func (h *TripHandler) PauseTrip(c *gin.Context) {
	var req PauseTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_BODY", err)
		return
	}

	trip, err := h.trips.Pause(c.Request.Context(), service.PauseRequest{
		TripID:         c.Param("id"),
		CurrentMileage: req.CurrentMileage,
		Location:       req.Location,
		WaitingKind:    domain.WaitingKind(req.WaitingKind),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// ResumeTrip handles POST /v1/trips/:id/resume
func (h *TripHandler) ResumeTrip(c *gin.Context) {
	var req ResumeTripRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBadRequest(c, "INVALID_BODY", err)
		return
	}

	trip, err := h.trips.Resume(c.Request.Context(), service.ResumeRequest{
		TripID:         c.Param("id"),
		CurrentMileage: req.CurrentMileage,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// FinishTrip handles POST /v1/trips/:id/finish
func (h *TripHandler) FinishTrip(c *gin.Context) {
	var req FinishTripRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBadRequest(c, "INVALID_BODY", err)
		return
	}

	trip, err := h.trips.Finish(c.Request.Context(), service.FinishRequest{
		TripID:     c.Param("id"),
		EndMileage: req.EndMileage,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	trip, err := h.scheduler.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}
