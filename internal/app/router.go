package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"fleet/internal/handler"
	"fleet/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler  *handler.TripHandler
	FleetHandler *handler.FleetHandler
	Logger       logrus.FieldLogger

	// Optional. A nil RedisClient disables idempotency keys and a nil
	// Metrics handler leaves /metrics unrouted.
	RedisClient *redis.Client
	NewRelicApp *newrelic.Application
	Metrics     http.Handler
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicAttributes())
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Logger))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	v1 := router.Group("/v1")
	{
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.CreateTrip)
			trips.GET("", deps.TripHandler.ListTrips)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.PATCH("/:id", deps.TripHandler.RescheduleTrip)
			trips.POST("/:id/start", deps.TripHandler.StartTrip)
			trips.POST("/:id/pause", deps.TripHandler.PauseTrip)
			trips.POST("/:id/resume", deps.TripHandler.ResumeTrip)
			trips.POST("/:id/finish", deps.TripHandler.FinishTrip)
			trips.POST("/:id/cancel", deps.TripHandler.CancelTrip)
		}

		v1.GET("/availability", deps.FleetHandler.Availability)
		v1.GET("/trucks/:id/mileage", deps.FleetHandler.TruckMileage)
	}

	return router
}
