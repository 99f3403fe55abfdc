package cache

import (
	"context"
	"time"

	"dhukaan/backend/internal/domain"
)

// ForecastCache holds computed depletion forecasts so repeated dashboard
// polls do not rescan the event ledger. A miss is (nil, false, nil).
type ForecastCache interface {
	Get(ctx context.Context, key string) (*domain.DepletionForecastResponse, bool, error)
	Set(ctx context.Context, key string, value *domain.DepletionForecastResponse, ttl time.Duration) error
}

// NoopForecastCache never hits. Used when redis is not configured.
type NoopForecastCache struct{}

func (NoopForecastCache) Get(_ context.Context, _ string) (*domain.DepletionForecastResponse, bool, error) {
	return nil, false, nil
}

func (NoopForecastCache) Set(_ context.Context, _ string, _ *domain.DepletionForecastResponse, _ time.Duration) error {
	return nil
}
