package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"dhukaan/backend/internal/domain"
)

const forecastKeyPrefix = "dhukaan:forecast:"

// forecastEnvelope wraps the cached response with the time it was stored,
// so the payload carries its own age alongside the redis TTL.
type forecastEnvelope struct {
	StoredAt time.Time                         `json:"stored_at"`
	Response *domain.DepletionForecastResponse `json:"response"`
}

type RedisForecastCache struct {
	client *redis.Client
}

func NewRedisForecastCache(addr string, password string, db int) *RedisForecastCache {
	return &RedisForecastCache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (c *RedisForecastCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisForecastCache) Close() error {
	return c.client.Close()
}

func (c *RedisForecastCache) Get(ctx context.Context, key string) (*domain.DepletionForecastResponse, bool, error) {
	raw, err := c.client.Get(ctx, forecastKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var env forecastEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Response == nil {
		// An unreadable entry is a miss; the caller recomputes and
		// overwrites it.
		return nil, false, nil
	}
	return env.Response, true, nil
}

func (c *RedisForecastCache) Set(ctx context.Context, key string, value *domain.DepletionForecastResponse, ttl time.Duration) error {
	if value == nil || ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(forecastEnvelope{StoredAt: time.Now().UTC(), Response: value})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, forecastKeyPrefix+key, payload, ttl).Err()
}
