// Package enrich attaches coordinates to locations by geocoding their
// addresses, one at a time or over the whole backlog.
package enrich

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geodir/internal/location"
	"github.com/sells-group/geodir/internal/model"
	"github.com/sells-group/geodir/internal/resilience"
	"github.com/sells-group/geodir/pkg/geocode"
)

// DefaultMinInterval is the minimum gap between two provider calls.
const DefaultMinInterval = 500 * time.Millisecond

// Store is the storage the pipeline needs.
type Store interface {
	GetLocation(ctx context.Context, id int64) (*model.Location, error)
	ListGeocodeCandidates(ctx context.Context, missingOnly bool) ([]model.Location, error)
	UpdateCoordinates(ctx context.Context, id int64, address string, pt model.Point) error
}

// Pipeline geocodes records and persists their coordinates. It only ever
// writes the coordinates of a record.
type Pipeline struct {
	geocoder geocode.Client
	store    Store
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	log      *zap.Logger
	now      func() time.Time

	breakerThreshold int
	breakerCooldown  time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMinInterval sets the minimum gap between provider calls. Zero
// disables throttling.
func WithMinInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		p.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithBreaker stops calling the provider after threshold consecutive
// provider errors, until cooldown has elapsed. threshold <= 0 disables it.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(p *Pipeline) {
		p.breakerThreshold = threshold
		p.breakerCooldown = cooldown
	}
}

// WithLogger sets the logger. Default: zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPipeline creates a Pipeline.
func NewPipeline(gc geocode.Client, store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		geocoder: gc,
		store:    store,
		limiter:  rate.NewLimiter(rate.Every(DefaultMinInterval), 1),
		log:      zap.L(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With(zap.String("component", "enrich"))
	if p.breakerThreshold > 0 {
		p.breaker = resilience.NewBreaker(geocode.BreakerConfig(p.breakerThreshold, p.breakerCooldown), p.log)
	}
	return p
}

// EnrichOne geocodes l's address and stores the resulting point. A record
// without an address is skipped. Failures leave the stored coordinates
// untouched and come back as a failed Outcome, never as an error.
func (p *Pipeline) EnrichOne(ctx context.Context, l *model.Location) (o Outcome) {
	start := p.now()
	o = Outcome{LocationID: l.ID, Name: l.Name, Address: l.Address}
	defer func() { o.Duration = p.now().Sub(start) }()

	if !l.HasAddress() {
		o.Status = StatusSkipped
		o.Reason = "no address"
		p.log.Debug("enrich skipped", zap.Int64("location_id", l.ID), zap.String("reason", o.Reason))
		return o
	}

	res, err := p.resolve(ctx, l.Address)
	if err != nil {
		return p.fail(o, classify(ctx, err), err)
	}

	if err := p.store.UpdateCoordinates(ctx, l.ID, l.Address, res.Point); err != nil {
		kind := KindStorage
		if errors.Is(err, location.ErrStale) {
			kind = KindStale
		}
		return p.fail(o, kind, err)
	}

	pt := res.Point
	l.Coordinates = &pt
	o.Status = StatusSucceeded
	o.Point = &pt
	p.log.Info("enrich succeeded",
		zap.Int64("location_id", l.ID),
		zap.Float64("lon", pt.Lon),
		zap.Float64("lat", pt.Lat),
	)
	return o
}

// resolve waits for the throttle and calls the geocoder, through the
// breaker when one is configured.
func (p *Pipeline) resolve(ctx context.Context, address string) (*geocode.Result, error) {
	call := func(ctx context.Context) (*geocode.Result, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "enrich: throttle")
		}
		return p.geocoder.Resolve(ctx, address)
	}
	if p.breaker == nil {
		return call(ctx)
	}
	return resilience.Guard(ctx, p.breaker, call)
}

func (p *Pipeline) fail(o Outcome, kind Kind, err error) Outcome {
	o.Status = StatusFailed
	o.Kind = kind
	o.Reason = err.Error()
	if kind == KindCanceled {
		p.log.Debug("enrich canceled", zap.Int64("location_id", o.LocationID))
		return o
	}
	p.log.Warn("enrich failed",
		zap.Int64("location_id", o.LocationID),
		zap.String("address", o.Address),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	return o
}

func classify(ctx context.Context, err error) Kind {
	if ctx.Err() != nil {
		return KindCanceled
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return KindProviderError
	}
	switch geocode.KindOf(err) {
	case geocode.InvalidInput:
		return KindInvalidInput
	case geocode.NotFound:
		return KindNotFound
	default:
		return KindProviderError
	}
}

// BacklogOptions configures EnrichBacklog.
type BacklogOptions struct {
	// MissingOnly restricts the run to records without coordinates.
	MissingOnly bool

	// OnStart receives the number of candidate records.
	OnStart func(total int)

	// OnOutcome is called after every processed record.
	OnOutcome func(Outcome)
}

// EnrichBacklog runs EnrichOne over every candidate record in id order. A
// failing record never stops the run. Cancellation is checked before each
// record; an aborted run returns its partial Summary with the context
// error.
func (p *Pipeline) EnrichBacklog(ctx context.Context, opts BacklogOptions) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString(), StartedAt: p.now()}
	log := p.log.With(zap.String("run_id", sum.RunID))

	cands, err := p.store.ListGeocodeCandidates(ctx, opts.MissingOnly)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list candidates")
	}
	sum.Total = len(cands)
	if opts.OnStart != nil {
		opts.OnStart(len(cands))
	}
	log.Info("backlog started", zap.Int("candidates", len(cands)), zap.Bool("missing_only", opts.MissingOnly))

	for i := range cands {
		if err := ctx.Err(); err != nil {
			return p.abort(log, sum, err)
		}

		o := p.EnrichOne(ctx, &cands[i])
		if o.Kind == KindCanceled {
			return p.abort(log, sum, ctx.Err())
		}
		sum.record(o)
		if opts.OnOutcome != nil {
			opts.OnOutcome(o)
		}
	}

	sum.finish(p.now(), false)
	log.Info("backlog finished",
		zap.String("status", string(sum.Status)),
		zap.Int("attempted", sum.Attempted),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

func (p *Pipeline) abort(log *zap.Logger, sum *Summary, err error) (*Summary, error) {
	sum.finish(p.now(), true)
	log.Warn("backlog aborted",
		zap.Int("processed", len(sum.Outcomes)),
		zap.Int("remaining", sum.Total-len(sum.Outcomes)),
	)
	return sum, eris.Wrap(err, "enrich: backlog aborted")
}
