// Package location persists directory records and their categories in
// PostgreSQL with PostGIS.
package location

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geodir/internal/model"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	ErrNotFound      = eris.New("location: not found")
	ErrCategoryInUse = eris.New("location: category is referenced by locations")
	ErrStale         = eris.New("location: address changed since geocoding started")
)

// DeletePolicy decides what happens to locations referencing a deleted
// category.
type DeletePolicy string

// Delete policies.
const (
	PolicyRestrict DeletePolicy = "restrict"
	PolicyNullify  DeletePolicy = "nullify"
	PolicyCascade  DeletePolicy = "cascade"
)

// ParseDeletePolicy validates a policy name. Empty means restrict.
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch DeletePolicy(s) {
	case "", PolicyRestrict:
		return PolicyRestrict, nil
	case PolicyNullify:
		return PolicyNullify, nil
	case PolicyCascade:
		return PolicyCascade, nil
	default:
		return "", eris.Errorf("location: unknown delete policy %q", s)
	}
}

// CategoryPatch is a partial category update.
type CategoryPatch struct {
	Slug          *string
	LabelSingular *string
	LabelPlural   *string
}

// DeleteResult reports the effect of a category deletion.
type DeleteResult struct {
	Policy DeletePolicy `json:"policy"`

	// Affected counts locations that were detached (nullify) or deleted
	// (cascade).
	Affected int64 `json:"affected"`
}

// Store is the persistence API for locations and categories.
type Store interface {
	// ListCategories returns every category ordered by plural label.
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	// UpdateCategory rejects slug changes while locations reference the
	// category.
	UpdateCategory(ctx context.Context, id int64, p CategoryPatch) (*model.Category, error)
	DeleteCategory(ctx context.Context, id int64, policy DeletePolicy) (*DeleteResult, error)
	// UpsertCategories inserts or relabels categories keyed by slug.
	UpsertCategories(ctx context.Context, cats []model.Category) (int64, error)

	CreateLocation(ctx context.Context, l *model.Location) error
	GetLocation(ctx context.Context, id int64) (*model.Location, error)
	// UpdateLocation applies p and returns the stored record together with
	// the names of the fields that changed.
	UpdateLocation(ctx context.Context, id int64, p model.LocationPatch) (*model.Location, []string, error)

	// ListGeocodeCandidates returns every location ordered by id, or only
	// those without coordinates when missingOnly is set.
	ListGeocodeCandidates(ctx context.Context, missingOnly bool) ([]model.Location, error)
	// UpdateCoordinates writes pt only while the stored address still
	// equals address. Otherwise it returns ErrStale.
	UpdateCoordinates(ctx context.Context, id int64, address string, pt model.Point) error
}
