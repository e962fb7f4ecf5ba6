package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"fleet/internal/config"
	"fleet/internal/notify"
	"fleet/internal/service"
)

// NewPublisher returns the publisher selected by cfg.Backend and a close
// function for its connection.
func NewPublisher(cfg config.NotifyConfig, logger logrus.FieldLogger, m notify.ConnectionMetrics) (service.Publisher, func(), error) {
	switch cfg.Backend {
	case "", config.NotifyBackendLog:
		return notify.NewLogPublisher(logger), func() {}, nil

	case config.NotifyBackendNATS:
		p, err := notify.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, logger, m)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("url", cfg.NATSURL).Info("Connected to NATS")
		return p, p.Close, nil

	case config.NotifyBackendAMQP:
		p, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("exchange", cfg.AMQPExchange).Info("Connected to RabbitMQ")
		return p, func() {
			if err := p.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close RabbitMQ publisher")
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown notify backend %q", cfg.Backend)
}
