package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"dhukaan/backend/internal/cache"
	"dhukaan/backend/internal/domain"
	"dhukaan/backend/internal/inventory"
)

// Engine estimates how many days of stock remain per product from recent
// sale velocity. Products whose projected stockout falls inside the
// threshold window surface at the top of the response.
type Engine struct {
	cache         cache.ForecastCache
	cacheTTL      time.Duration
	lookbackDays  int
	thresholdDays float64
	log           *logrus.Entry
}

func NewEngine(cacheStore cache.ForecastCache, cacheTTL time.Duration, lookbackDays int, thresholdDays float64, logger *logrus.Logger) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopForecastCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	if lookbackDays < 1 {
		lookbackDays = 14
	}
	if thresholdDays <= 0 {
		thresholdDays = 7
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Engine{
		cache:         cacheStore,
		cacheTTL:      cacheTTL,
		lookbackDays:  lookbackDays,
		thresholdDays: thresholdDays,
		log:           logger.WithField("component", "forecast"),
	}
}

func (e *Engine) LookbackDays() int {
	return e.lookbackDays
}

// Forecast projects days-to-stockout for every active plain product and for
// bundles through their effective stock. saleSums carries units sold per
// product over the lookback window.
func (e *Engine) Forecast(ctx context.Context, products map[string]domain.Product, saleSums map[string]int, now time.Time) domain.DepletionForecastResponse {
	cacheKey := buildCacheKey(e.lookbackDays, now)
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		return *cached
	}

	forecasts := make([]domain.DepletionForecast, 0, len(products))
	for _, product := range products {
		if !product.Active {
			continue
		}
		stock := inventory.EffectiveStock(product, products)
		sold := soldUnits(product, saleSums)
		velocity := float64(sold) / float64(e.lookbackDays)
		if velocity <= 0 {
			continue
		}
		days := float64(stock) / velocity
		if days > e.thresholdDays {
			continue
		}
		forecasts = append(forecasts, domain.DepletionForecast{
			ProductID:      product.ID,
			Name:           product.Name,
			EffectiveStock: stock,
			DailyVelocity:  round2(velocity),
			DaysToStockout: round2(days),
		})
	}

	sort.Slice(forecasts, func(i, j int) bool {
		if forecasts[i].DaysToStockout == forecasts[j].DaysToStockout {
			return forecasts[i].ProductID < forecasts[j].ProductID
		}
		return forecasts[i].DaysToStockout < forecasts[j].DaysToStockout
	})

	resp := domain.DepletionForecastResponse{
		GeneratedAt:  now.UTC().Format(time.RFC3339),
		LookbackDays: e.lookbackDays,
		Forecasts:    forecasts,
	}
	if err := e.cache.Set(ctx, cacheKey, &resp, e.cacheTTL); err != nil {
		e.log.WithError(err).Warn("forecast cache write failed")
	}
	return resp
}

// soldUnits reports lookback-window sales for a product. Bundle sales land
// on component rows, so a bundle's velocity is the slowest component
// demand expressed in buildable sets.
func soldUnits(product domain.Product, saleSums map[string]int) int {
	if !product.IsBundle {
		return saleSums[product.ID]
	}
	sets := 0
	for _, item := range product.BundleItems {
		if item.Quantity < 1 {
			return 0
		}
		buildable := saleSums[item.ComponentID] / item.Quantity
		if sets == 0 || buildable < sets {
			sets = buildable
		}
	}
	return sets
}

// buildCacheKey buckets by hour; the cache layer adds its own namespace.
func buildCacheKey(lookbackDays int, now time.Time) string {
	return fmt.Sprintf("depletion:%d:%s", lookbackDays, now.UTC().Format("2006-01-02T15"))
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
