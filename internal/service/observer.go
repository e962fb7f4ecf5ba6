package service

import (
	"context"
	"errors"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// Observer receives operational signals from the engine.
type Observer interface {
	// ObserveOperation records one finished operation with its outcome code,
	// "OK" on success.
	ObserveOperation(op, outcome string, d time.Duration)

	// ObserveConflict records a rejected reservation.
	ObserveConflict(resource string)

	// ObserveDelayed records trips moved to DELAYED by a sweep.
	ObserveDelayed(n int)

	// ObserveNotification records a publish attempt.
	ObserveNotification(eventType string, err error)
}

// NopObserver discards every signal.
type NopObserver struct{}

func (NopObserver) ObserveOperation(string, string, time.Duration) {}
func (NopObserver) ObserveConflict(string)                         {}
func (NopObserver) ObserveDelayed(int)                             {}
func (NopObserver) ObserveNotification(string, error)              {}

// outcome maps an operation result to a low-cardinality label.
func outcome(err error) string {
	if err == nil {
		return "OK"
	}
	if code := CodeOf(err); code != "" {
		return code
	}
	return "ERROR"
}

// observe logs the operation and reports it to the observer.
func observe(logger logrus.FieldLogger, obs Observer, op string, fields logrus.Fields, start time.Time, err error) {
	d := time.Since(start)
	out := outcome(err)
	obs.ObserveOperation(op, out, d)

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		obs.ObserveConflict(string(conflict.Resource))
	}

	entry := logger.WithFields(fields).WithFields(logrus.Fields{
		"op":          op,
		"outcome":     out,
		"duration_ms": d.Milliseconds(),
	})
	switch {
	case err == nil:
		entry.Info("Trip operation completed")
	case out != "ERROR":
		entry.WithError(err).Warn("Trip operation rejected")
	default:
		entry.WithError(err).Error("Trip operation failed")
	}
}

// startSegment opens a New Relic segment when ctx carries a transaction.
func startSegment(ctx context.Context, name string) *newrelic.Segment {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}
	return txn.StartSegment(name)
}

func endSegment(seg *newrelic.Segment) {
	if seg != nil {
		seg.End()
	}
}
