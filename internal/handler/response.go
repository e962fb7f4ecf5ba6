package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet/internal/repository"
	"fleet/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	Resource          string `json:"resource,omitempty"`
	ResourceID        string `json:"resource_id,omitempty"`
	ConflictingTripID string `json:"conflicting_trip_id,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	status := mapErrorToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, ErrorResponse{Error: "INTERNAL", Message: "internal error"})
		return
	}

	resp := ErrorResponse{Error: service.CodeOf(err), Message: err.Error()}
	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		resp.Resource = string(conflict.Resource)
		resp.ResourceID = conflict.ResourceID
		resp.ConflictingTripID = conflict.TripID
	}
	c.JSON(status, resp)
}

// respondBadRequest reports a request the handler could not decode.
func respondBadRequest(c *gin.Context, code string, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: code, Message: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// bindOptionalJSON decodes the body when one was sent.
func bindOptionalJSON(c *gin.Context, v any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(v)
}
