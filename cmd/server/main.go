package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"fleet/internal/app"
	"fleet/internal/config"
	"fleet/internal/domain"
	"fleet/internal/handler"
	"fleet/internal/metrics"
	"fleet/internal/notify"
	internalRedis "fleet/internal/redis"
	"fleet/internal/repository"
	"fleet/internal/repository/memory"
	"fleet/internal/repository/postgres"
	"fleet/internal/service"
)

func main() {
	cfg := config.Load()
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// New Relic first so the database and Redis clients can be instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	tx, closeStore, err := newStore(ctx, cfg, nrApp, collector, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize store")
	}
	defer closeStore()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to redis")
		}
		defer redisClient.Close()
		logger.WithField("addr", cfg.Redis.Addr).Info("Connected to Redis")
	}

	var connMetrics notify.ConnectionMetrics
	if collector != nil {
		connMetrics = collector
	}
	publisher, closePublisher, err := app.NewPublisher(cfg.Notify, logger, connMetrics)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize notification publisher")
	}
	defer closePublisher()

	var observer service.Observer = service.NopObserver{}
	if collector != nil {
		observer = collector
	}
	notifications := service.NewNotificationService(publisher, cfg.Notify.QueueSize, logger, observer)

	engine, locker := wireEngine(cfg, tx, redisClient, notifications, observer, logger)

	var metricsHandler http.Handler
	if collector != nil {
		metricsHandler = collector.Handler()
	}
	router := app.NewRouter(app.RouterDeps{
		TripHandler:  handler.NewTripHandler(engine.Scheduler, engine.Trips),
		FleetHandler: handler.NewFleetHandler(engine.Scheduler, engine.Trucks),
		Logger:       logger,
		RedisClient:  redisClient,
		NewRelicApp:  nrApp,
		Metrics:      metricsHandler,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	if cfg.Sweep.Enabled {
		sweeper := service.NewDelayedTripSweeper(engine.Scheduler, locker, cfg.Sweep.Interval, cfg.Sweep.LockTTL, logger)
		go func() {
			defer close(sweepDone)
			sweeper.Run(sweepCtx)
		}()
	} else {
		close(sweepDone)
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	stopSweep()
	<-sweepDone

	if err := notifications.Close(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Pending notifications dropped on shutdown")
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("Server exited")
}

// newStore opens the configured persistence backend.
func newStore(
	ctx context.Context,
	cfg *config.Config,
	nrApp *newrelic.Application,
	collector *metrics.Collector,
	logger logrus.FieldLogger,
) (repository.TxRunner, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		store := memory.NewStore()
		seedDemoFleet(store, cfg.Pricing.DefaultDieselPrice)
		logger.Warn("Using in-memory store; data is lost on restart")
		return store, func() {}, nil

	case config.StoreBackendPostgres:
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("database", cfg.Database.DBName).Info("Connected to PostgreSQL")

		opts := []postgres.TxOption{postgres.WithMaxAttempts(cfg.Database.MaxAttempts)}
		if collector != nil {
			opts = append(opts, postgres.WithRetryHook(collector.TxRetried))
		}
		return postgres.NewTxRunner(db, opts...), closeDB(db, logger), nil
	}

	return nil, nil, errors.New("unknown store backend " + cfg.Store.Backend)
}

func closeDB(db *sql.DB, logger logrus.FieldLogger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close database")
		}
	}
}

// wireEngine builds the trip engine. Redis backs the caches and the sweeper
// lock when it is configured.
func wireEngine(
	cfg *config.Config,
	tx repository.TxRunner,
	redisClient *redis.Client,
	notifier service.Notifier,
	observer service.Observer,
	logger logrus.FieldLogger,
) (*service.Engine, service.Locker) {
	deps := service.Deps{
		Tx:       tx,
		Notifier: notifier,
		Observer: observer,
		Logger:   logger,
	}

	var locker service.Locker
	var priceCache service.PriceCache
	if redisClient != nil {
		cacheStore := internalRedis.NewCacheStore(redisClient, cfg.Pricing.DieselPriceTTL)
		deps.Cache = cacheStore
		priceCache = cacheStore
		locker = internalRedis.NewLockStore(redisClient)
	}
	deps.Settings = service.NewSettingsService(priceCache, cfg.Pricing.DefaultDieselPrice, logger)

	return service.NewEngine(deps), locker
}

// seedDemoFleet gives the in-memory backend a small fleet to plan against.
func seedDemoFleet(store *memory.Store, dieselPrice float64) {
	store.AddTruck(domain.Truck{ID: "truck-1", Plate: "TRK-0001", HasCapacity: true, AvgConsumption: 3.2, CurrentMileage: 120000})
	store.AddTruck(domain.Truck{ID: "tractor-1", Plate: "TRC-0001", AvgConsumption: 2.4, CurrentMileage: 380000})
	store.AddTrailer(domain.Trailer{ID: "trailer-1", Plate: "TRL-0001", Active: true})
	store.AddTrailer(domain.Trailer{ID: "trailer-2", Plate: "TRL-0002", Active: true})
	store.AddDriver(domain.Driver{ID: "driver-1", Name: "Ana Souza"})
	store.AddDriver(domain.Driver{ID: "driver-2", Name: "Bruno Lima"})
	if dieselPrice > 0 {
		store.SetDieselPrice(dieselPrice)
	}
}
