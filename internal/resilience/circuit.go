// Package resilience provides retry and circuit breaker helpers for calls
// to external services such as geocoding providers.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed lets every call through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown has elapsed.
	BreakerOpen
	// BreakerProbing lets a single call through to test recovery.
	BreakerProbing
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerProbing:
		return "probing"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned for calls rejected by an open breaker.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// Name identifies the guarded dependency in logs.
	Name string

	// Threshold is the number of consecutive tripping failures that opens
	// the breaker. Default: 5.
	Threshold int

	// Cooldown is how long the breaker stays open before a probe call is
	// let through. Default: 30s.
	Cooldown time.Duration

	// Trips reports whether err counts as a failure. Errors it rejects
	// count as successes. Nil means every error trips.
	Trips func(err error) bool
}

// Breaker fails calls fast after a run of consecutive failures. While
// probing only one call is in flight; the others are rejected.
type Breaker struct {
	cfg BreakerConfig
	log *zap.Logger
	now func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
}

// NewBreaker creates a closed Breaker that logs its transitions to log.
func NewBreaker(cfg BreakerConfig, log *zap.Logger) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Trips == nil {
		cfg.Trips = func(err error) bool { return err != nil }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Breaker{
		cfg: cfg,
		log: log.With(zap.String("breaker", cfg.Name)),
		now: time.Now,
	}
}

// Guard runs fn unless b rejects the call, and records the result.
func Guard[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.acquire(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.record(err)
	return v, err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrCircuitOpen
		}
		b.moveTo(BreakerProbing)
	case BreakerProbing:
		return ErrCircuitOpen
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.Trips(err) {
		b.failures = 0
		if b.state == BreakerProbing {
			b.moveTo(BreakerClosed)
		}
		return
	}

	b.failures++
	if b.state == BreakerProbing || (b.state == BreakerClosed && b.failures >= b.cfg.Threshold) {
		b.openedAt = b.now()
		b.moveTo(BreakerOpen)
	}
}

func (b *Breaker) moveTo(to BreakerState) {
	from := b.state
	b.state = to
	b.log.Warn("circuit breaker state change",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("consecutive_failures", b.failures),
	)
}
