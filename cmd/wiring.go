package main

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/geodir/internal/config"
	"github.com/sells-group/geodir/internal/db"
	"github.com/sells-group/geodir/internal/enrich"
	"github.com/sells-group/geodir/internal/resilience"
	"github.com/sells-group/geodir/pkg/geocode"
)

// newGeocoder builds the geocode client from configuration. pool may be nil,
// which disables the result cache. minInterval > 0 paces every provider
// request, retries included.
func newGeocoder(gc config.GeocodeConfig, pool db.Pool, minInterval time.Duration) (geocode.Client, error) {
	provider, err := geocode.NewProvider(gc.Provider, gc.BaseURL, gc.APIKey, gc.UserAgent, gc.CountryCodes, gc.Language)
	if err != nil {
		return nil, err
	}
	opts := []geocode.Option{
		geocode.WithProvider(provider),
		geocode.WithTimeout(gc.Timeout()),
		geocode.WithRetry(resilience.FromRetryConfig(gc.Retries, gc.BackoffMs)),
	}
	if minInterval > 0 {
		opts = append(opts, geocode.WithThrottle(rate.NewLimiter(rate.Every(minInterval), 1)))
	}
	if gc.CacheEnabled && pool != nil {
		opts = append(opts, geocode.WithCache(pool, gc.CacheTTLDays))
	}
	return geocode.NewClient(opts...), nil
}

// newPipeline builds the enrichment pipeline from configuration. gc must come
// from newGeocoder with ec.MinInterval(), which does the pacing.
func newPipeline(ec config.EnrichConfig, gc geocode.Client, store enrich.Store) *enrich.Pipeline {
	return enrich.NewPipeline(gc, store,
		enrich.WithMinInterval(0),
		enrich.WithBreaker(ec.BreakerThreshold, ec.BreakerReset()),
	)
}
