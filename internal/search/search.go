// Package search answers filtered and ranked full-text queries over
// locations.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geodir/internal/db"
	"github.com/sells-group/geodir/internal/location"
	"github.com/sells-group/geodir/internal/model"
)

// DefaultLanguage is the PostgreSQL text search configuration used when none
// is configured.
const DefaultLanguage = "romanian"

// Scope decides which records a Service may ever return. It is fixed at
// construction and never taken from a request.
type Scope int

const (
	// ScopePublic returns only published geographic records.
	ScopePublic Scope = iota
	// ScopeInternal returns every record and honors the visibility filters.
	ScopeInternal
)

func (s Scope) String() string {
	if s == ScopeInternal {
		return "internal"
	}
	return "public"
}

// Filters narrow a search. Published and GeographicEntity only apply to
// ScopeInternal.
type Filters struct {
	Published        *bool
	GeographicEntity *bool
	CategoryID       *int64
	CategorySlug     string
}

// Service runs searches against the locations table.
type Service struct {
	pool     db.Pool
	scope    Scope
	language string
	log      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLanguage sets the text search configuration (e.g. "romanian",
// "english", "simple").
func WithLanguage(cfg string) Option {
	return func(s *Service) {
		if cfg != "" {
			s.language = cfg
		}
	}
}

// WithLogger sets the logger. Default: zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a Service bound to scope.
func NewService(pool db.Pool, scope Scope, opts ...Option) *Service {
	s := &Service{pool: pool, scope: scope, language: DefaultLanguage, log: zap.L()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("component", "search"), zap.Stringer("scope", scope))
	return s
}

// Scope returns the scope the service was built with.
func (s *Service) Scope() Scope { return s.scope }

// Search returns the records matching f. A non-blank query keeps only
// records whose name, description or category labels match it, ordered by
// relevance then name. Without a query records come back in id order.
func (s *Service) Search(ctx context.Context, f Filters, query string) ([]model.Location, error) {
	sql, args := s.build(f, strings.TrimSpace(query))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "search: query")
	}
	defer rows.Close()

	out := []model.Location{}
	for rows.Next() {
		l, err := location.ScanLocation(rows)
		if err != nil {
			return nil, eris.Wrap(err, "search: scan")
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "search: iterate")
	}

	s.log.Debug("search done",
		zap.String("query", query),
		zap.Int("results", len(out)),
	)
	return out, nil
}

// document is the text search document built per record.
const document = `concat_ws(' ', l.name, l.description, c.label_singular, c.label_plural)`

func (s *Service) build(f Filters, query string) (string, []any) {
	var (
		b     strings.Builder
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	b.WriteString("SELECT ")
	b.WriteString(location.SelectColumns)
	b.WriteString("\n\tFROM locations l\n\tLEFT JOIN categories c ON c.id = l.category_id")

	if query != "" {
		cfg := arg(s.language)
		q := arg(query)
		fmt.Fprintf(&b, "\n\tCROSS JOIN plainto_tsquery(%s::regconfig, %s) q", cfg, q)
		fmt.Fprintf(&b, "\n\tCROSS JOIN LATERAL (SELECT to_tsvector(%s::regconfig, %s) AS doc) d", cfg, document)
		conds = append(conds, "d.doc @@ q")
	}

	switch s.scope {
	case ScopeInternal:
		if f.Published != nil {
			conds = append(conds, "l.published = "+arg(*f.Published))
		}
		if f.GeographicEntity != nil {
			conds = append(conds, "l.geographic_entity = "+arg(*f.GeographicEntity))
		}
	default:
		conds = append(conds, "l.published", "l.geographic_entity")
	}

	if f.CategoryID != nil {
		conds = append(conds, "l.category_id = "+arg(*f.CategoryID))
	}
	if f.CategorySlug != "" {
		conds = append(conds, "c.slug = "+arg(f.CategorySlug))
	}

	if len(conds) > 0 {
		b.WriteString("\n\tWHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	if query != "" {
		b.WriteString("\n\tORDER BY ts_rank(d.doc, q) DESC, l.name ASC, l.id ASC")
	} else {
		b.WriteString("\n\tORDER BY l.id ASC")
	}
	return b.String(), args
}
