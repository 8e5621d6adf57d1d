package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// bucketIdle is how long an untouched client bucket is kept.
const bucketIdle = 10 * time.Minute

// Throttle keeps one token bucket per client IP for a scope.
type Throttle struct {
	scope   string
	limit   rate.Limit
	burst   int
	buckets *gocache.Cache
	now     func() time.Time
}

// NewThrottle creates a Throttle allowing rps requests per second with the
// given burst per client. rps <= 0 disables it.
func NewThrottle(scope string, rps float64, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		scope:   scope,
		limit:   rate.Limit(rps),
		burst:   burst,
		buckets: gocache.New(bucketIdle, bucketIdle),
		now:     time.Now,
	}
}

// Allow takes a token for client. When none is available it reports how
// long the client should wait.
func (t *Throttle) Allow(client string) (bool, time.Duration) {
	if t == nil || t.limit <= 0 {
		return true, 0
	}
	lim := t.bucket(client)
	now := t.now()
	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return false, d
	}
	return true, 0
}

func (t *Throttle) bucket(client string) *rate.Limiter {
	if v, ok := t.buckets.Get(client); ok {
		t.buckets.SetDefault(client, v)
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(t.limit, t.burst)
	if err := t.buckets.Add(client, lim, gocache.DefaultExpiration); err != nil {
		// Lost the race to another request from the same client.
		if v, ok := t.buckets.Get(client); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// Middleware rejects requests over the limit with 429 and Retry-After.
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := t.Allow(clientIP(r))
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "Request was throttled.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of RemoteAddr, which RealIP has already
// replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Scope returns the throttle scope name.
func (t *Throttle) Scope() string { return t.scope }
