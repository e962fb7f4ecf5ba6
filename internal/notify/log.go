// Package notify delivers trip events to the configured backend.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"fleet/internal/domain"
)

// LogPublisher writes trip events to the log. It is the default backend.
type LogPublisher struct {
	logger logrus.FieldLogger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish writes the event as one structured info entry. It never fails.
func (p *LogPublisher) Publish(ctx context.Context, event domain.TripEvent) error {
	p.logger.WithFields(logrus.Fields{
		"event":     event.Type,
		"event_id":  event.ID,
		"trip_id":   event.TripID,
		"trip_code": event.TripCode,
		"status":    event.Status,
		"truck_id":  event.TruckID,
	}).Info("Trip event")
	return nil
}
