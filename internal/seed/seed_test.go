package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geodir/internal/location"
	"github.com/sells-group/geodir/internal/model"
)

const fixture = `
categories:
  - label_singular: Muzeu
    label_plural: Muzee
  - slug: parc
    label_singular: Parc
    label_plural: Parcuri
locations:
  - name: Ateneul Român
    address: Str. Benjamin Franklin 1-3, București
    category: muzeu
    published: true
  - name: Parcul Herăstrău
    address: Șos. Kiseleff 32
    category: parc
    coordinates: {lon: 26.0827, lat: 44.4697}
    published: true
  - name: Asociația Prietenii Parcurilor
    category: parc
    geographic_entity: false
`

type fakeStore struct {
	upserted  []model.Category
	created   []model.Location
	slugCalls int
}

func (s *fakeStore) UpsertCategories(_ context.Context, cats []model.Category) (int64, error) {
	s.upserted = append(s.upserted, cats...)
	return int64(len(cats)), nil
}

func (s *fakeStore) GetCategoryBySlug(_ context.Context, slug string) (*model.Category, error) {
	s.slugCalls++
	switch slug {
	case "muzeu":
		return &model.Category{ID: 1, Slug: slug}, nil
	case "parc":
		return &model.Category{ID: 2, Slug: slug}, nil
	}
	return nil, location.ErrNotFound
}

func (s *fakeStore) CreateLocation(_ context.Context, l *model.Location) error {
	if err := l.Validate(); err != nil {
		return err
	}
	l.ID = int64(len(s.created) + 1)
	s.created = append(s.created, *l)
	return nil
}

func TestLoadFileAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))

	f, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, f.Categories, 2)
	require.Len(t, f.Locations, 3)

	store := &fakeStore{}
	res, err := Apply(context.Background(), store, f)
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Categories)
	assert.Equal(t, 3, res.Locations)
	assert.Equal(t, 1, res.Ungeocoded)
	assert.Equal(t, 2, store.slugCalls)

	ateneu := store.created[0]
	assert.Equal(t, int64(1), *ateneu.CategoryID)
	assert.True(t, ateneu.GeographicEntity)
	assert.True(t, ateneu.Published)
	assert.False(t, ateneu.UserSubmitted)
	assert.Nil(t, ateneu.Coordinates)

	assert.Equal(t, &model.Point{Lon: 26.0827, Lat: 44.4697}, store.created[1].Coordinates)

	assoc := store.created[2]
	assert.False(t, assoc.GeographicEntity)
	assert.False(t, assoc.Published)
	assert.Equal(t, int64(2), *assoc.CategoryID)
}

func TestApply_UnknownCategory(t *testing.T) {
	f, err := Parse([]byte("locations:\n  - name: x\n    category: nope\n"))
	require.NoError(t, err)

	store := &fakeStore{}
	res, err := Apply(context.Background(), store, f)
	require.Error(t, err)
	assert.True(t, errors.Is(err, location.ErrNotFound))
	assert.Contains(t, err.Error(), `category "nope"`)
	assert.Zero(t, res.Locations)
	assert.Empty(t, store.created)
}

func TestApply_InvalidLocationStops(t *testing.T) {
	f, err := Parse([]byte("locations:\n  - name: ok\n  - address: no name\n  - name: never\n"))
	require.NoError(t, err)

	store := &fakeStore{}
	res, err := Apply(context.Background(), store, f)
	require.Error(t, err)

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, model.FieldName)
	assert.Equal(t, 1, res.Locations)
	assert.Len(t, store.created, 1)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("locations:\n  - name: x\n    user_submitted: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed: parse fixture")
}
