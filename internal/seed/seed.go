// Package seed loads category and location fixtures from YAML.
package seed

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geodir/internal/model"
)

// Store is the storage seeding needs.
type Store interface {
	UpsertCategories(ctx context.Context, cats []model.Category) (int64, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error)
	CreateLocation(ctx context.Context, l *model.Location) error
}

// Fixture is the top-level seed file.
type Fixture struct {
	Categories []Category `yaml:"categories"`
	Locations  []Location `yaml:"locations"`
}

// Category is a seeded category. Slug defaults to the slugified singular
// label.
type Category struct {
	Slug          string `yaml:"slug"`
	LabelSingular string `yaml:"label_singular"`
	LabelPlural   string `yaml:"label_plural"`
}

// Location is a seeded location. Category refers to a category slug.
type Location struct {
	Name        string       `yaml:"name"`
	Address     string       `yaml:"address"`
	Website     string       `yaml:"website"`
	Email       string       `yaml:"email"`
	Phone       string       `yaml:"phone"`
	Description string       `yaml:"description"`
	Category    string       `yaml:"category"`
	Coordinates *model.Point `yaml:"coordinates"`

	GeographicEntity *bool `yaml:"geographic_entity"`
	Published        bool  `yaml:"published"`
	InexactLocation  bool  `yaml:"inexact_location"`
}

// Result counts what Apply wrote.
type Result struct {
	Categories int64
	Locations  int
	// Ungeocoded counts created locations with an address but no
	// coordinates.
	Ungeocoded int
}

// LoadFile reads a fixture from path.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "seed: read %s", path)
	}
	return Parse(data)
}

// Parse decodes a fixture. Unknown keys are rejected.
func Parse(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, eris.Wrap(err, "seed: parse fixture")
	}
	return &f, nil
}

// Apply upserts the fixture's categories by slug, then inserts its
// locations. It stops at the first invalid location.
func Apply(ctx context.Context, store Store, f *Fixture) (*Result, error) {
	res := &Result{}
	log := zap.L().With(zap.String("component", "seed"))

	if len(f.Categories) > 0 {
		cats := make([]model.Category, len(f.Categories))
		for i, c := range f.Categories {
			cats[i] = model.Category{Slug: c.Slug, LabelSingular: c.LabelSingular, LabelPlural: c.LabelPlural}
		}
		n, err := store.UpsertCategories(ctx, cats)
		if err != nil {
			return nil, eris.Wrap(err, "seed: upsert categories")
		}
		res.Categories = n
		log.Info("categories seeded", zap.Int64("upserted", n))
	}

	slugs := map[string]int64{}
	for i, fl := range f.Locations {
		l := model.NewLocation(fl.Name)
		l.Address = fl.Address
		l.Website = fl.Website
		l.Email = fl.Email
		l.Phone = fl.Phone
		l.Description = fl.Description
		l.Coordinates = fl.Coordinates
		l.Published = fl.Published
		l.InexactLocation = fl.InexactLocation
		if fl.GeographicEntity != nil {
			l.GeographicEntity = *fl.GeographicEntity
		}

		if slug := strings.TrimSpace(fl.Category); slug != "" {
			id, ok := slugs[slug]
			if !ok {
				c, err := store.GetCategoryBySlug(ctx, slug)
				if err != nil {
					return res, eris.Wrapf(err, "seed: location %d (%s): category %q", i, fl.Name, slug)
				}
				id = c.ID
				slugs[slug] = id
			}
			l.CategoryID = &id
		}

		if err := store.CreateLocation(ctx, l); err != nil {
			return res, eris.Wrapf(err, "seed: location %d (%s)", i, fl.Name)
		}
		res.Locations++
		if l.Coordinates == nil && l.HasAddress() {
			res.Ungeocoded++
		}
	}

	log.Info("locations seeded",
		zap.Int("created", res.Locations),
		zap.Int("ungeocoded", res.Ungeocoded),
	)
	return res, nil
}
