// Package api serves the directory over HTTP: public GeoJSON reads, the
// location proposal intake and the optional admin routes.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/sells-group/geodir/internal/enrich"
	"github.com/sells-group/geodir/internal/location"
	"github.com/sells-group/geodir/internal/model"
	"github.com/sells-group/geodir/internal/search"
)

// Throttle scopes.
const (
	ScopeReadOnly         = "read-only"
	ScopeLocationProposal = "location-proposal"
)

// Searcher runs location searches. *search.Service implements it.
type Searcher interface {
	Search(ctx context.Context, f search.Filters, query string) ([]model.Location, error)
}

// Enricher geocodes a single record. *enrich.Pipeline implements it.
type Enricher interface {
	EnrichOne(ctx context.Context, l *model.Location) enrich.Outcome
}

// Config holds the HTTP surface settings.
type Config struct {
	CORSOrigins  []string
	AdminEnabled bool

	// Per-client-IP token buckets. A rate <= 0 disables the scope.
	ReadRPS       float64
	ReadBurst     int
	ProposalRPS   float64
	ProposalBurst int

	// CategoryCacheTTL bounds how long the category list is served from
	// memory. Zero disables the cache.
	CategoryCacheTTL time.Duration

	// DeletePolicy applies to admin category deletes without ?policy=.
	DeletePolicy location.DeletePolicy
}

// Server holds the API dependencies.
type Server struct {
	cfg      Config
	store    location.Store
	public   Searcher
	internal Searcher
	enricher Enricher
	hook     *enrich.Hook

	categories *gocache.Cache
	read       *Throttle
	proposal   *Throttle
	log        *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAdmin supplies the internal-scope searcher and the enricher used by
// the admin routes. The routes are mounted only when Config.AdminEnabled is
// set as well.
func WithAdmin(internal Searcher, e Enricher) Option {
	return func(s *Server) {
		s.internal = internal
		s.enricher = e
	}
}

// WithLogger sets the logger. Default: zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Server. public must be a public-scope searcher.
func New(cfg Config, store location.Store, public Searcher, hook *enrich.Hook, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		public: public,
		hook:   hook,
		log:    zap.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("component", "api"))
	if cfg.CategoryCacheTTL > 0 {
		s.categories = gocache.New(cfg.CategoryCacheTTL, 2*cfg.CategoryCacheTTL)
	}
	s.read = NewThrottle(ScopeReadOnly, cfg.ReadRPS, cfg.ReadBurst)
	s.proposal = NewThrottle(ScopeLocationProposal, cfg.ProposalRPS, cfg.ProposalBurst)
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.read.Middleware)
		r.Get("/locations", s.handleListLocations)
		r.Get("/locations/{id}", s.handleGetLocation)
		r.Get("/categories", s.handleListCategories)
		r.Get("/categories/{id}", s.handleGetCategory)
	})
	r.With(s.proposal.Middleware).Post("/location-proposal", s.handleProposal)

	if s.cfg.AdminEnabled && s.internal != nil {
		r.Route("/admin", s.adminRoutes)
		s.log.Info("admin routes enabled")
	}
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
