package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"fleet/internal/repository"
)

// PriceCache keeps the diesel price close to the engine.
type PriceCache interface {
	GetDieselPrice(ctx context.Context) (float64, bool, error)
	SetDieselPrice(ctx context.Context, price float64) error
}

// SettingsService resolves operator settings used by the cost engine.
type SettingsService struct {
	cache        PriceCache
	defaultPrice float64
	logger       logrus.FieldLogger
}

// NewSettingsService creates a new SettingsService. cache may be nil.
func NewSettingsService(cache PriceCache, defaultPrice float64, logger logrus.FieldLogger) *SettingsService {
	return &SettingsService{cache: cache, defaultPrice: defaultPrice, logger: logger}
}

// DieselPrice returns the price per liter: the cached value, else the
// stored setting, else the configured default. Cache failures are logged
// and never fail the caller.
func (s *SettingsService) DieselPrice(ctx context.Context, settings repository.SettingsRepository) (float64, error) {
	if s.cache != nil {
		price, ok, err := s.cache.GetDieselPrice(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("Diesel price cache read failed")
		} else if ok {
			return price, nil
		}
	}

	price, err := settings.DieselPrice(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return s.defaultPrice, nil
	}
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.SetDieselPrice(ctx, price); err != nil {
			s.logger.WithError(err).Warn("Diesel price cache write failed")
		}
	}
	return price, nil
}
