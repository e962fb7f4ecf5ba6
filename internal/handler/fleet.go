package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleet/internal/domain"
	"fleet/internal/service"
)

// FleetHandler serves resource reads: availability and mileage history.
type FleetHandler struct {
	scheduler *service.TripScheduler
	trucks    *service.TruckService
}

// NewFleetHandler creates a new FleetHandler.
func NewFleetHandler(scheduler *service.TripScheduler, trucks *service.TruckService) *FleetHandler {
	return &FleetHandler{scheduler: scheduler, trucks: trucks}
}

// Availability handles GET /v1/availability?start=&end=
// Both bounds are RFC 3339; end may be omitted for an open-ended window.
func (h *FleetHandler) Availability(c *gin.Context) {
	var window domain.Window

	if raw := c.Query("start"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondBadRequest(c, "INVALID_QUERY", errInvalidQuery("start"))
			return
		}
		window.Start = start
	}
	if raw := c.Query("end"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondBadRequest(c, "INVALID_QUERY", errInvalidQuery("end"))
			return
		}
		window.End = end
	}

	avail, err := h.scheduler.Availability(c.Request.Context(), window)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newAvailabilityResponse(avail))
}

// TruckMileage handles GET /v1/trucks/:id/mileage
func (h *FleetHandler) TruckMileage(c *gin.Context) {
	report, err := h.trucks.Mileage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTruckMileageResponse(report))
}

func errInvalidQuery(param string) error {
	return fmt.Errorf("invalid %s query parameter", param)
}
