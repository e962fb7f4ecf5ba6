package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"fleet/internal/domain"
)

// ConnectionMetrics tracks the broker connection state.
type ConnectionMetrics interface {
	NATSSetConnected(connected bool)
}

// NATSPublisher publishes trip events as JSON on
// <prefix>.<event type>.<trip id>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSPublisher connects to NATS. m may be nil.
func NewNATSPublisher(url, prefix string, logger logrus.FieldLogger, m ConnectionMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("fleet-trip-engine"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info("NATS closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

// Publish sends the event as JSON on its Subject. Delivery is fire and
// forget: an error only means the message never left the client.
func (p *NATSPublisher) Publish(ctx context.Context, event domain.TripEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.nc.Publish(Subject(p.prefix, event), b)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// Subject builds the NATS subject of an event.
func Subject(prefix string, event domain.TripEvent) string {
	if prefix == "" {
		prefix = "fleet.trips"
	}
	return fmt.Sprintf("%s.%s.%s", prefix, strings.ToLower(string(event.Type)), subjectToken(event.TripID))
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
