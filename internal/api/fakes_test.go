package api

import (
	"context"
	"sort"
	"sync"

	"github.com/sells-group/geodir/internal/enrich"
	"github.com/sells-group/geodir/internal/location"
	"github.com/sells-group/geodir/internal/model"
	"github.com/sells-group/geodir/internal/search"
)

// memStore is an in-memory location.Store.
type memStore struct {
	mu         sync.Mutex
	locations  map[int64]*model.Location
	categories map[int64]*model.Category
	nextID     int64

	listCategoryCalls int
	failWith          error
}

var _ location.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		locations:  map[int64]*model.Location{},
		categories: map[int64]*model.Category{},
		nextID:     100,
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addCategory(c model.Category) *model.Category {
	m.categories[c.ID] = &c
	return &c
}

func (m *memStore) addLocation(l *model.Location) {
	if l.CategoryID != nil {
		l.Category = m.categories[*l.CategoryID]
	}
	m.locations[l.ID] = l
}

func (m *memStore) ListCategories(context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCategoryCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]model.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LabelPlural < out[j].LabelPlural })
	return out, nil
}

func (m *memStore) GetCategory(_ context.Context, id int64) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, location.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetCategoryBySlug(_ context.Context, slug string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, location.ErrNotFound
}

func (m *memStore) CreateCategory(_ context.Context, c *model.Category) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *memStore) UpdateCategory(_ context.Context, id int64, p location.CategoryPatch) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, location.ErrNotFound
	}
	if p.LabelSingular != nil {
		c.LabelSingular = *p.LabelSingular
	}
	if p.LabelPlural != nil {
		c.LabelPlural = *p.LabelPlural
	}
	if p.Slug != nil {
		c.Slug = *p.Slug
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) references(id int64) []int64 {
	var ids []int64
	for _, l := range m.locations {
		if l.CategoryID != nil && *l.CategoryID == id {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

func (m *memStore) DeleteCategory(_ context.Context, id int64, policy location.DeletePolicy) (*location.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return nil, location.ErrNotFound
	}
	refs := m.references(id)
	switch policy {
	case location.PolicyRestrict:
		if len(refs) > 0 {
			return nil, location.ErrCategoryInUse
		}
	case location.PolicyNullify:
		for _, lid := range refs {
			m.locations[lid].CategoryID = nil
			m.locations[lid].Category = nil
		}
	case location.PolicyCascade:
		for _, lid := range refs {
			delete(m.locations, lid)
		}
	}
	delete(m.categories, id)
	return &location.DeleteResult{Policy: policy, Affected: int64(len(refs))}, nil
}

func (m *memStore) UpsertCategories(context.Context, []model.Category) (int64, error) {
	return 0, nil
}

func (m *memStore) CreateLocation(_ context.Context, l *model.Location) error {
	if err := l.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.CategoryID != nil {
		if _, ok := m.categories[*l.CategoryID]; !ok {
			verr := &model.ValidationError{}
			verr.Add(model.FieldCategory, "Unknown category.")
			return verr
		}
	}
	l.ID = m.id()
	cp := *l
	m.addLocation(&cp)
	return nil
}

func (m *memStore) GetLocation(_ context.Context, id int64) (*model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locations[id]
	if !ok {
		return nil, location.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) UpdateLocation(_ context.Context, id int64, p model.LocationPatch) (*model.Location, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locations[id]
	if !ok {
		return nil, nil, location.ErrNotFound
	}
	cp := *l
	changed := p.Apply(&cp)
	if err := cp.Validate(); err != nil {
		return nil, nil, err
	}
	m.locations[id] = &cp
	out := cp
	return &out, changed, nil
}

func (m *memStore) ListGeocodeCandidates(context.Context, bool) ([]model.Location, error) {
	return nil, nil
}

func (m *memStore) UpdateCoordinates(_ context.Context, id int64, _ string, pt model.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locations[id]
	if !ok {
		return location.ErrNotFound
	}
	l.Coordinates = &pt
	return nil
}

func (m *memStore) location(id int64) *model.Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locations[id]
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locations)
}

// fakeSearcher returns fixed results and records the last call.
type fakeSearcher struct {
	results []model.Location
	err     error

	filters search.Filters
	query   string
	calls   int
}

func (f *fakeSearcher) Search(_ context.Context, filters search.Filters, query string) ([]model.Location, error) {
	f.calls++
	f.filters = filters
	f.query = query
	return f.results, f.err
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []int64
}

func (d *recordingDispatcher) Dispatch(_ context.Context, l *model.Location) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, l.ID)
}

func (d *recordingDispatcher) dispatched() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int64(nil), d.ids...)
}

type fakeEnricher struct {
	outcome enrich.Outcome
	got     []int64
}

func (e *fakeEnricher) EnrichOne(_ context.Context, l *model.Location) enrich.Outcome {
	e.got = append(e.got, l.ID)
	o := e.outcome
	o.LocationID = l.ID
	return o
}

func ptr[T any](v T) *T { return &v }
