// Package geocode resolves free-text postal addresses to WGS84 points using
// OpenStreetMap Nominatim (default) or the Google Geocoding API.
package geocode

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geodir/internal/db"
	"github.com/sells-group/geodir/internal/model"
	"github.com/sells-group/geodir/internal/resilience"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 10 * time.Second

// Client resolves addresses to coordinates. A non-nil error is always a
// *Failure.
type Client interface {
	Resolve(ctx context.Context, address string) (*Result, error)
}

// Result is a successful resolution.
type Result struct {
	Point       model.Point
	Provider    string
	DisplayName string
	Quality     string
	Cached      bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithProvider selects the upstream provider. Default: Nominatim.
func WithProvider(p Provider) Option {
	return func(g *geocoder) {
		if p != nil {
			g.provider = p
		}
	}
}

// WithHTTPClient sets a custom HTTP client. Its Timeout is overridden by
// WithTimeout when that is also given.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger. Default: zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(g *geocoder) {
		if l != nil {
			g.log = l
		}
	}
}

// WithRetry sets the retry policy for retryable provider errors.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *geocoder) {
		g.retry = cfg
	}
}

// WithThrottle makes every provider request wait on l first, retries
// included. Cache hits do not take a token. Share l between clients that
// must keep a common minimum gap between requests.
func WithThrottle(l *rate.Limiter) Option {
	return func(g *geocoder) {
		g.throttle = l
	}
}

// WithCache enables the Postgres result cache. ttlDays <= 0 keeps entries
// forever.
func WithCache(pool db.Pool, ttlDays int) Option {
	return func(g *geocoder) {
		if pool != nil {
			g.cache = &resultCache{pool: pool, ttlDays: ttlDays}
		}
	}
}

type geocoder struct {
	provider   Provider
	httpClient *http.Client
	timeout    time.Duration
	log        *zap.Logger
	retry      resilience.RetryConfig
	throttle   *rate.Limiter
	cache      *resultCache
}

// NewClient creates a Client. Apart from the optional throttle, which is
// itself safe for concurrent use, it holds no mutable state.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		provider: NewNominatim(DefaultNominatimURL, DefaultUserAgent),
		timeout:  DefaultTimeout,
		log:      zap.L(),
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.httpClient == nil {
		g.httpClient = &http.Client{Timeout: g.timeout}
	} else if g.httpClient.Timeout == 0 || g.httpClient.Timeout > g.timeout {
		hc := *g.httpClient
		hc.Timeout = g.timeout
		g.httpClient = &hc
	}
	g.log = g.log.With(zap.String("component", "geocode"), zap.String("provider", g.provider.Name()))
	g.retry.ShouldRetry = isRetryable
	if g.retry.OnRetry == nil {
		g.retry.OnRetry = resilience.RetryLogger("geocode", g.provider.Name())
	}
	return g
}

// Resolve implements Client.
func (g *geocoder) Resolve(ctx context.Context, address string) (*Result, error) {
	addr := strings.TrimSpace(address)
	if addr == "" {
		f := &Failure{Kind: InvalidInput, Address: address, Provider: g.provider.Name(), Err: eris.New("geocode: empty address")}
		g.logFailure(f)
		return nil, f
	}

	key := cacheKey(g.provider.Name(), addr)
	if g.cache != nil {
		if res, err := g.cache.get(ctx, key); err == nil {
			g.logSuccess(addr, res)
			return res, nil
		}
	}

	res, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*Result, error) {
		if g.throttle != nil {
			if err := g.throttle.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "geocode: throttle")
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.provider.Lookup(callCtx, g.httpClient, addr)
	})
	if err != nil {
		f := toFailure(err, g.provider.Name())
		f.Address = addr
		g.logFailure(f)
		return nil, f
	}

	if !res.Point.Valid() {
		f := &Failure{
			Kind:     ProviderError,
			Address:  addr,
			Provider: g.provider.Name(),
			Err:      eris.Errorf("geocode: %s returned out-of-range coordinates (%f, %f)", g.provider.Name(), res.Point.Lon, res.Point.Lat),
		}
		g.logFailure(f)
		return nil, f
	}

	if g.cache != nil {
		if err := g.cache.put(ctx, key, res); err != nil {
			g.log.Debug("geocode cache store failed", zap.Error(err))
		}
	}

	g.logSuccess(addr, res)
	return res, nil
}

func (g *geocoder) logSuccess(addr string, res *Result) {
	g.log.Info("geocode resolved",
		zap.String("address", addr),
		zap.String("outcome", "success"),
		zap.Float64("lon", res.Point.Lon),
		zap.Float64("lat", res.Point.Lat),
		zap.Bool("cached", res.Cached),
	)
}

func (g *geocoder) logFailure(f *Failure) {
	fields := []zap.Field{
		zap.String("address", f.Address),
		zap.String("outcome", string(f.Kind)),
		zap.Error(f.Err),
	}
	if f.StatusCode != 0 {
		fields = append(fields, zap.Int("status", f.StatusCode))
	}
	if f.Raw != "" {
		fields = append(fields, zap.String("raw", f.Raw))
	}
	g.log.Warn("geocode failed", fields...)
}

// toFailure coerces any error from a provider into a *Failure.
func toFailure(err error, provider string) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: ProviderError, Provider: provider, Err: err, Transient: resilience.IsTransient(err)}
}

func isRetryable(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Retryable()
}
