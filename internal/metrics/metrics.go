package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the engine's Prometheus series on a private registry.
type Collector struct {
	reg *prometheus.Registry

	Operations        *prometheus.CounterVec   // op, outcome
	OperationDuration *prometheus.HistogramVec // op
	Conflicts         *prometheus.CounterVec   // resource
	DelayedTrips      prometheus.Counter

	Notifications      *prometheus.CounterVec // type
	NotificationErrors *prometheus.CounterVec // type

	TxRetries     prometheus.Counter
	NATSConnected prometheus.Gauge
}

// NewCollector registers every series on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_trip_operations_total",
			Help: "Trip operations by outcome code.",
		}, []string{"op", "outcome"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fleet_trip_operation_duration_seconds",
			Help:    "Duration of trip operations including retries.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}, []string{"op"}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_reservation_conflicts_total",
			Help: "Rejected reservations by resource.",
		}, []string{"resource"}),
		DelayedTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_delayed_trips_total",
			Help: "Trips moved to DELAYED by the sweeper.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_notifications_published_total",
			Help: "Trip events delivered to the notification backend.",
		}, []string{"type"}),
		NotificationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_notification_errors_total",
			Help: "Trip events dropped or failed to publish.",
		}, []string{"type"}),
		TxRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_tx_retries_total",
			Help: "Units of work retried after a transient database error.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
	}

	// Register
	reg.MustRegister(
		c.Operations, c.OperationDuration, c.Conflicts, c.DelayedTrips,
		c.Notifications, c.NotificationErrors,
		c.TxRetries, c.NATSConnected,
	)

	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Registry exposes the private registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// ObserveOperation counts a trip operation by outcome and records its latency.
func (c *Collector) ObserveOperation(op, outcome string, d time.Duration) {
	c.Operations.WithLabelValues(op, outcome).Inc()
	c.OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveConflict counts a reservation conflict on resource.
func (c *Collector) ObserveConflict(resource string) {
	c.Conflicts.WithLabelValues(resource).Inc()
}

// ObserveDelayed adds trips moved to DELAYED by a sweep.
func (c *Collector) ObserveDelayed(n int) {
	c.DelayedTrips.Add(float64(n))
}

// ObserveNotification counts a published event, or a failed publish when err is set.
func (c *Collector) ObserveNotification(eventType string, err error) {
	if err != nil {
		c.NotificationErrors.WithLabelValues(eventType).Inc()
		return
	}
	c.Notifications.WithLabelValues(eventType).Inc()
}

// TxRetried matches the retry hook of the postgres transaction runner.
func (c *Collector) TxRetried(attempt int, err error) {
	c.TxRetries.Inc()
}

// NATSSetConnected reports the NATS connection state.
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}
