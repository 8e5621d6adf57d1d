package location

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geodir/internal/db"
	"github.com/sells-group/geodir/internal/model"
)

// PostgreSQL error codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// SelectColumns lists the location columns read by ScanLocation. Queries
// must alias locations as l and left-join categories as c.
const SelectColumns = `l.id, l.name, l.address, l.website, l.email, l.phone, l.description,
		ST_AsEWKB(l.point), l.category_id, l.geographic_entity, l.published,
		l.inexact_location, l.user_submitted, l.created_at, l.updated_at,
		c.id, c.slug, c.label_singular, c.label_plural`

const selectLocation = `SELECT ` + SelectColumns + `
	FROM locations l
	LEFT JOIN categories c ON c.id = l.category_id`

// ScanLocation reads one row selected with SelectColumns.
func ScanLocation(row pgx.Row) (*model.Location, error) {
	var (
		l       model.Location
		point   []byte
		catID   *int64
		catSlug *string
		catSing *string
		catPlur *string
	)
	err := row.Scan(
		&l.ID, &l.Name, &l.Address, &l.Website, &l.Email, &l.Phone, &l.Description,
		&point, &l.CategoryID, &l.GeographicEntity, &l.Published,
		&l.InexactLocation, &l.UserSubmitted, &l.CreatedAt, &l.UpdatedAt,
		&catID, &catSlug, &catSing, &catPlur,
	)
	if err != nil {
		return nil, err
	}

	if l.Coordinates, err = DecodePoint(point); err != nil {
		return nil, err
	}
	if catID != nil {
		l.Category = &model.Category{ID: *catID}
		if catSlug != nil {
			l.Category.Slug = *catSlug
		}
		if catSing != nil {
			l.Category.LabelSingular = *catSing
		}
		if catPlur != nil {
			l.Category.LabelPlural = *catPlur
		}
	}
	return &l, nil
}

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// ListCategories implements Store.
func (s *PostgresStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, slug, label_singular, label_plural
		FROM categories ORDER BY label_plural, id`)
	if err != nil {
		return nil, eris.Wrap(err, "location: list categories")
	}
	defer rows.Close()

	var cats []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.LabelSingular, &c.LabelPlural); err != nil {
			return nil, eris.Wrap(err, "location: scan category")
		}
		cats = append(cats, c)
	}
	return cats, eris.Wrap(rows.Err(), "location: iterate categories")
}

// GetCategory implements Store.
func (s *PostgresStore) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	return s.getCategory(ctx, s.pool, `WHERE id = $1`, id)
}

// GetCategoryBySlug implements Store.
func (s *PostgresStore) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	return s.getCategory(ctx, s.pool, `WHERE slug = $1`, slug)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) getCategory(ctx context.Context, q queryRower, where string, arg any) (*model.Category, error) {
	var c model.Category
	err := q.QueryRow(ctx, `SELECT id, slug, label_singular, label_plural FROM categories `+where, arg).
		Scan(&c.ID, &c.Slug, &c.LabelSingular, &c.LabelPlural)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "location: get category")
	}
	return &c, nil
}

// CreateCategory implements Store.
func (s *PostgresStore) CreateCategory(ctx context.Context, c *model.Category) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (slug, label_singular, label_plural)
		VALUES ($1, $2, $3) RETURNING id`,
		c.Slug, c.LabelSingular, c.LabelPlural,
	).Scan(&c.ID)
	if isPgCode(err, pgUniqueViolation) {
		return slugTaken()
	}
	return eris.Wrap(err, "location: create category")
}

// UpdateCategory implements Store.
func (s *PostgresStore) UpdateCategory(ctx context.Context, id int64, p CategoryPatch) (*model.Category, error) {
	var out *model.Category
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		c, err := s.getCategory(ctx, tx, `WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}

		if p.Slug != nil && *p.Slug != c.Slug {
			var referenced bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM locations WHERE category_id = $1)`, id,
			).Scan(&referenced); err != nil {
				return eris.Wrap(err, "location: check category references")
			}
			if referenced {
				verr := &model.ValidationError{}
				verr.Add("slug", "The slug cannot change while locations reference this category.")
				return verr
			}
			c.Slug = *p.Slug
		}
		if p.LabelSingular != nil {
			c.LabelSingular = *p.LabelSingular
		}
		if p.LabelPlural != nil {
			c.LabelPlural = *p.LabelPlural
		}
		c.Normalize()
		if err := c.Validate(); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE categories SET slug = $2, label_singular = $3, label_plural = $4
			WHERE id = $1`,
			id, c.Slug, c.LabelSingular, c.LabelPlural,
		)
		if isPgCode(err, pgUniqueViolation) {
			return slugTaken()
		}
		if err != nil {
			return eris.Wrap(err, "location: update category")
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCategory implements Store.
func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64, policy DeletePolicy) (*DeleteResult, error) {
	res := &DeleteResult{Policy: policy}
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := s.getCategory(ctx, tx, `WHERE id = $1 FOR UPDATE`, id); err != nil {
			return err
		}

		var refs int64
		if err := tx.QueryRow(ctx,
			`SELECT count(*) FROM locations WHERE category_id = $1`, id,
		).Scan(&refs); err != nil {
			return eris.Wrap(err, "location: count category references")
		}

		if refs > 0 {
			switch policy {
			case PolicyNullify:
				tag, err := tx.Exec(ctx,
					`UPDATE locations SET category_id = NULL, updated_at = now() WHERE category_id = $1`, id)
				if err != nil {
					return eris.Wrap(err, "location: detach category")
				}
				res.Affected = tag.RowsAffected()
			case PolicyCascade:
				tag, err := tx.Exec(ctx, `DELETE FROM locations WHERE category_id = $1`, id)
				if err != nil {
					return eris.Wrap(err, "location: cascade category delete")
				}
				res.Affected = tag.RowsAffected()
			default:
				return eris.Wrapf(ErrCategoryInUse, "%d locations reference category %d", refs, id)
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
			return eris.Wrap(err, "location: delete category")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpsertCategories implements Store.
func (s *PostgresStore) UpsertCategories(ctx context.Context, cats []model.Category) (int64, error) {
	rows := make([][]any, 0, len(cats))
	for i := range cats {
		c := cats[i]
		c.Normalize()
		if err := c.Validate(); err != nil {
			return 0, eris.Wrapf(err, "location: category %q", c.LabelSingular)
		}
		rows = append(rows, []any{c.Slug, c.LabelSingular, c.LabelPlural})
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "categories",
		Columns:      []string{"slug", "label_singular", "label_plural"},
		ConflictKeys: []string{"slug"},
	}, rows)
}

// CreateLocation implements Store.
func (s *PostgresStore) CreateLocation(ctx context.Context, l *model.Location) error {
	if err := l.Validate(); err != nil {
		return err
	}
	point, err := EncodePoint(l.Coordinates)
	if err != nil {
		return err
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO locations (name, address, website, email, phone, description, point,
			category_id, geographic_entity, published, inexact_location, user_submitted)
		VALUES ($1, $2, $3, $4, $5, $6, ST_GeomFromEWKB($7), $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		l.Name, l.Address, l.Website, l.Email, l.Phone, l.Description, point,
		l.CategoryID, l.GeographicEntity, l.Published, l.InexactLocation, l.UserSubmitted,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if isPgCode(err, pgForeignKeyViolation) {
		return unknownCategory()
	}
	return eris.Wrap(err, "location: create location")
}

// GetLocation implements Store.
func (s *PostgresStore) GetLocation(ctx context.Context, id int64) (*model.Location, error) {
	return getLocation(ctx, s.pool, selectLocation+` WHERE l.id = $1`, id)
}

func getLocation(ctx context.Context, q queryRower, sql string, id int64) (*model.Location, error) {
	l, err := ScanLocation(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "location: get location")
	}
	return l, nil
}

// UpdateLocation implements Store.
func (s *PostgresStore) UpdateLocation(ctx context.Context, id int64, p model.LocationPatch) (*model.Location, []string, error) {
	var (
		out     *model.Location
		changed []string
	)
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		l, err := getLocation(ctx, tx, selectLocation+` WHERE l.id = $1 FOR UPDATE OF l`, id)
		if err != nil {
			return err
		}

		changed = p.Apply(l)
		if len(changed) == 0 {
			out = l
			return nil
		}
		if err := l.Validate(); err != nil {
			return err
		}
		point, err := EncodePoint(l.Coordinates)
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			UPDATE locations SET
				name = $2, address = $3, website = $4, email = $5, phone = $6,
				description = $7, point = ST_GeomFromEWKB($8), category_id = $9,
				geographic_entity = $10, published = $11, inexact_location = $12,
				user_submitted = $13, updated_at = now()
			WHERE id = $1
			RETURNING updated_at`,
			id, l.Name, l.Address, l.Website, l.Email, l.Phone,
			l.Description, point, l.CategoryID,
			l.GeographicEntity, l.Published, l.InexactLocation, l.UserSubmitted,
		).Scan(&l.UpdatedAt)
		if isPgCode(err, pgForeignKeyViolation) {
			return unknownCategory()
		}
		if err != nil {
			return eris.Wrap(err, "location: update location")
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, changed, nil
}

// ListGeocodeCandidates implements Store.
func (s *PostgresStore) ListGeocodeCandidates(ctx context.Context, missingOnly bool) ([]model.Location, error) {
	sql := selectLocation
	if missingOnly {
		sql += ` WHERE l.point IS NULL`
	}
	sql += ` ORDER BY l.id`

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrap(err, "location: list geocode candidates")
	}
	defer rows.Close()

	var out []model.Location
	for rows.Next() {
		l, err := ScanLocation(rows)
		if err != nil {
			return nil, eris.Wrap(err, "location: scan geocode candidate")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "location: iterate geocode candidates")
}

// UpdateCoordinates implements Store.
func (s *PostgresStore) UpdateCoordinates(ctx context.Context, id int64, address string, pt model.Point) error {
	point, err := EncodePoint(&pt)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE locations SET point = ST_GeomFromEWKB($2), updated_at = now()
		WHERE id = $1 AND address = $3`,
		id, point, address,
	)
	if err != nil {
		return eris.Wrap(err, "location: update coordinates")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM locations WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return eris.Wrap(err, "location: check location exists")
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStale
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func slugTaken() error {
	verr := &model.ValidationError{}
	verr.Add("slug", "Category with this slug already exists.")
	return verr
}

func unknownCategory() error {
	verr := &model.ValidationError{}
	verr.Add(model.FieldCategory, "Invalid pk - object does not exist.")
	return verr
}
