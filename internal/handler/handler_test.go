package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet/internal/domain"
	"fleet/internal/repository/memory"
	"fleet/internal/service"
)

var now = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	store.AddTruck(domain.Truck{ID: "truck-1", Plate: "TRK-0001", HasCapacity: true, AvgConsumption: 3, CurrentMileage: 1000})
	store.AddTruck(domain.Truck{ID: "tractor-1", Plate: "TRC-0001", AvgConsumption: 2.5, CurrentMileage: 1000})
	store.AddTrailer(domain.Trailer{ID: "trailer-1", Plate: "TRL-0001", Active: true})
	store.AddDriver(domain.Driver{ID: "driver-1", Name: "Ana"})
	store.AddDriver(domain.Driver{ID: "driver-2", Name: "Bruno"})

	logger, _ := test.NewNullLogger()
	engine := service.NewEngine(service.Deps{
		Tx:     store,
		Logger: logger,
		Clock:  func() time.Time { return now },
	})

	trips := NewTripHandler(engine.Scheduler, engine.Trips)
	fleet := NewFleetHandler(engine.Scheduler, engine.Trucks)

	r := gin.New()
	v1 := r.Group("/v1")
	v1.POST("/trips", trips.CreateTrip)
	v1.GET("/trips", trips.ListTrips)
	v1.GET("/trips/:id", trips.GetTrip)
	v1.PATCH("/trips/:id", trips.RescheduleTrip)
	v1.POST("/trips/:id/start", trips.StartTrip)
	v1.POST("/trips/:id/pause", trips.PauseTrip)
	v1.POST("/trips/:id/resume", trips.ResumeTrip)
	v1.POST("/trips/:id/finish", trips.FinishTrip)
	v1.POST("/trips/:id/cancel", trips.CancelTrip)
	v1.GET("/availability", fleet.Availability)
	v1.GET("/trucks/:id/mileage", fleet.TruckMileage)
	return r
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewReader(b)
	} else {
		buf = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createTrip(t *testing.T, r http.Handler, truckID, driverID string) TripResponse {
	t.Helper()
	w := do(r, http.MethodPost, "/v1/trips", map[string]any{
		"truck_id":    truckID,
		"driver_id":   driverID,
		"origin":      "Porto Alegre",
		"destination": "Curitiba",
		"start_date":  now.Format(time.RFC3339),
		"end_date":    now.Add(48 * time.Hour).Format(time.RFC3339),
		"revenue":     5000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[TripResponse](t, w)
}

func TestTripHandler_Lifecycle(t *testing.T) {
	r := newTestRouter(t)

	trip := createTrip(t, r, "truck-1", "driver-1")
	assert.Equal(t, "PLANNED", trip.Status)
	assert.Regexp(t, `^TRP-[0-9A-F]{8}$`, trip.Code)
	assert.Empty(t, trip.Legs)

	w := do(r, http.MethodPost, "/v1/trips/"+trip.ID+"/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	started := decode[TripResponse](t, w)
	assert.Equal(t, "IN_PROGRESS", started.Status)
	assert.Equal(t, "initial", started.Stage)
	require.Len(t, started.Legs, 1)
	assert.Equal(t, "NORMAL", started.Legs[0].Type)

	w = do(r, http.MethodPost, "/v1/trips/"+trip.ID+"/pause", map[string]any{
		"current_mileage": 1100, "location": "Warehouse", "waiting_kind": "LOADING",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paused := decode[TripResponse](t, w)
	require.Len(t, paused.Legs, 2)
	assert.Equal(t, "WAITING", paused.Legs[1].Type)
	assert.Equal(t, "LOADING", paused.Legs[1].WaitingKind)
	assert.Equal(t, "PAUSED", paused.Legs[1].Status)

	w = do(r, http.MethodPost, "/v1/trips/"+trip.ID+"/resume", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "delivering", decode[TripResponse](t, w).Stage)

	w = do(r, http.MethodPost, "/v1/trips/"+trip.ID+"/pause", map[string]any{
		"current_mileage": 1400, "location": "Client dock", "waiting_kind": "UNLOADING",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/v1/trips/"+trip.ID+"/resume", map[string]any{"current_mileage": 1400})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	returning := decode[TripResponse](t, w)
	assert.Equal(t, "returning", returning.Stage)
	assert.Equal(t, "REPOSITIONING", returning.Legs[len(returning.Legs)-1].Type)

	w = do(r, http.MethodPost, "/v1/trips/"+trip.ID+"/finish", map[string]any{"end_mileage": 1700})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[TripResponse](t, w)
	assert.Equal(t, "COMPLETED", done.Status)
	assert.Equal(t, 700.0, done.Distance)
	assert.Empty(t, done.Stage)

	w = do(r, http.MethodGet, "/v1/trucks/truck-1/mileage", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	mileage := decode[TruckMileageResponse](t, w)
	assert.Equal(t, 1700.0, mileage.Truck.CurrentMileage)
	assert.NotEmpty(t, mileage.Readings)
}

func TestTripHandler_ErrorMapping(t *testing.T) {
	r := newTestRouter(t)
	trip := createTrip(t, r, "tractor-1", "driver-1")

	t.Run("validation is 400 with code", func(t *testing.T) {
		w := do(r, http.MethodPost, "/v1/trips/"+trip.ID+"/start", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "TRAILER_REQUIRED", decode[ErrorResponse](t, w).Error)
	})

	t.Run("unknown trip is 404", func(t *testing.T) {
		w := do(r, http.MethodGet, "/v1/trips/does-not-exist", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", decode[ErrorResponse](t, w).Error)
	})

	t.Run("conflict is 409 with conflicting trip", func(t *testing.T) {
		w := do(r, http.MethodPost, "/v1/trips", map[string]any{
			"truck_id":    "tractor-1",
			"driver_id":   "driver-2",
			"origin":      "A",
			"destination": "B",
			"start_date":  now.Add(time.Hour).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusConflict, w.Code)
		resp := decode[ErrorResponse](t, w)
		assert.Equal(t, "CONFLICT", resp.Error)
		assert.Equal(t, "truck", resp.Resource)
		assert.Equal(t, trip.ID, resp.ConflictingTripID)
	})

	t.Run("state error is 409", func(t *testing.T) {
		w := do(r, http.MethodPost, "/v1/trips/"+trip.ID+"/resume", nil)
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "NOT_PAUSED", decode[ErrorResponse](t, w).Error)
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/trips", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_BODY", decode[ErrorResponse](t, w).Error)
	})

	t.Run("bad status filter is 400", func(t *testing.T) {
		w := do(r, http.MethodGet, "/v1/trips?status=LOST", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_STATUS_FILTER", decode[ErrorResponse](t, w).Error)
	})
}

func TestTripHandler_ListRescheduleCancel(t *testing.T) {
	r := newTestRouter(t)
	trip := createTrip(t, r, "truck-1", "driver-1")

	newEnd := now.Add(72 * time.Hour)
	w := do(r, http.MethodPatch, "/v1/trips/"+trip.ID, map[string]any{
		"end_date": newEnd.Format(time.RFC3339),
		"notes":    "fragile",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[TripResponse](t, w)
	assert.Equal(t, newEnd.Format(time.RFC3339), updated.EndDate)
	assert.Equal(t, "fragile", updated.Notes)

	w = do(r, http.MethodGet, "/v1/trips?status=PLANNED&truck_id=truck-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]TripResponse](t, w), 1)

	w = do(r, http.MethodPost, "/v1/trips/"+trip.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CANCELLED", decode[TripResponse](t, w).Status)

	w = do(r, http.MethodGet, "/v1/trips?status=PLANNED", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]TripResponse](t, w))
}

func TestFleetHandler_Availability(t *testing.T) {
	r := newTestRouter(t)
	createTrip(t, r, "truck-1", "driver-1")

	start := now.Format(time.RFC3339)
	end := now.Add(24 * time.Hour).Format(time.RFC3339)
	w := do(r, http.MethodGet, "/v1/availability?start="+start+"&end="+end, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	avail := decode[AvailabilityResponse](t, w)
	require.Len(t, avail.Trucks, 1)
	assert.Equal(t, "tractor-1", avail.Trucks[0].ID)
	require.Len(t, avail.Drivers, 1)
	assert.Equal(t, "driver-2", avail.Drivers[0].ID)
	assert.Len(t, avail.Trailers, 1)

	w = do(r, http.MethodGet, "/v1/availability?start=yesterday", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_QUERY", decode[ErrorResponse](t, w).Error)

	w = do(r, http.MethodGet, "/v1/availability", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FIELD", decode[ErrorResponse](t, w).Error)
}
