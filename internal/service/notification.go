package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fleet/internal/domain"
)

// Publisher delivers trip events to an outside channel.
type Publisher interface {
	Publish(ctx context.Context, event domain.TripEvent) error
}

// Notifier accepts events after a commit. It never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, event domain.TripEvent)
}

// DefaultNotificationQueueSize bounds the events waiting for delivery.
const DefaultNotificationQueueSize = 256

// publishTimeout bounds a single delivery attempt.
const publishTimeout = 5 * time.Second

// NotificationService hands trip events to a Publisher on a background
// worker. Events are dropped, with a warning, when the queue is full.
type NotificationService struct {
	publisher Publisher
	logger    logrus.FieldLogger
	observer  Observer

	mu     sync.Mutex
	closed bool
	queue  chan domain.TripEvent
	done   chan struct{}
}

// NewNotificationService creates a new NotificationService and starts its worker.
func NewNotificationService(publisher Publisher, queueSize int, logger logrus.FieldLogger, observer Observer) *NotificationService {
	if queueSize <= 0 {
		queueSize = DefaultNotificationQueueSize
	}
	if observer == nil {
		observer = NopObserver{}
	}

	s := &NotificationService{
		publisher: publisher,
		logger:    logger,
		observer:  observer,
		queue:     make(chan domain.TripEvent, queueSize),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

// Notify enqueues an event for delivery.
func (s *NotificationService) Notify(ctx context.Context, event domain.TripEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.WithField("event", event.Type).Warn("Notification dropped after shutdown")
		return
	}

	select {
	case s.queue <- event:
	default:
		s.logger.WithFields(logrus.Fields{
			"event":   event.Type,
			"trip_id": event.TripID,
		}).Warn("Notification queue full, event dropped")
		s.observer.ObserveNotification(string(event.Type), errQueueFull)
	}
}

// Close stops accepting events and waits until queued ones are delivered
// or ctx expires.
func (s *NotificationService) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *NotificationService) run() {
	defer close(s.done)

	for event := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := s.publisher.Publish(ctx, event)
		cancel()

		s.observer.ObserveNotification(string(event.Type), err)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"event":   event.Type,
				"trip_id": event.TripID,
			}).Error("Failed to publish notification")
		}
	}
}

var errQueueFull = errors.New("notification queue full")

// NewTripEvent builds the event published for a trip transition.
func NewTripEvent(eventType domain.EventType, trip *domain.Trip, data map[string]interface{}) domain.TripEvent {
	return domain.TripEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		TripID:     trip.ID,
		TripCode:   trip.Code,
		Status:     trip.Status,
		TruckID:    trip.TruckID,
		DriverID:   trip.DriverID,
		TrailerID:  trip.TrailerID,
		Data:       data,
		OccurredAt: time.Now(),
	}
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, domain.TripEvent) {}
