package enrich

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sells-group/geodir/internal/location"
	"github.com/sells-group/geodir/internal/model"
	"github.com/sells-group/geodir/pkg/geocode"
)

type fakeStore struct {
	mu        sync.Mutex
	locations map[int64]*model.Location
	order     []int64
	updates   int
	updateErr error
}

func newFakeStore(locs ...*model.Location) *fakeStore {
	s := &fakeStore{locations: make(map[int64]*model.Location)}
	for _, l := range locs {
		s.locations[l.ID] = l
		s.order = append(s.order, l.ID)
	}
	return s
}

func (s *fakeStore) GetLocation(_ context.Context, id int64) (*model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[id]
	if !ok {
		return nil, location.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *fakeStore) ListGeocodeCandidates(_ context.Context, missingOnly bool) ([]model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Location
	for _, id := range s.order {
		l := s.locations[id]
		if missingOnly && l.Coordinates != nil {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (s *fakeStore) UpdateCoordinates(_ context.Context, id int64, address string, pt model.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	l, ok := s.locations[id]
	if !ok {
		return location.ErrNotFound
	}
	if l.Address != address {
		return location.ErrStale
	}
	p := pt
	l.Coordinates = &p
	s.updates++
	return nil
}

func (s *fakeStore) coordinates(id int64) *model.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locations[id].Coordinates
}

func (s *fakeStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// fakeGeocoder resolves from a fixed table. Unknown addresses are NotFound.
type fakeGeocoder struct {
	mu     sync.Mutex
	points map[string]model.Point
	fail   map[string]geocode.Kind
	calls  []time.Time
	onCall func(n int)
}

func (g *fakeGeocoder) Resolve(_ context.Context, address string) (*geocode.Result, error) {
	g.mu.Lock()
	g.calls = append(g.calls, time.Now())
	n := len(g.calls)
	hook := g.onCall
	g.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	if kind, ok := g.fail[address]; ok {
		return nil, &geocode.Failure{Kind: kind, Address: address, Err: errors.New("stubbed " + string(kind))}
	}
	pt, ok := g.points[address]
	if !ok {
		return nil, &geocode.Failure{Kind: geocode.NotFound, Address: address, Err: errors.New("no match")}
	}
	return &geocode.Result{Point: pt, Provider: "fake"}, nil
}

func (g *fakeGeocoder) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGeocoder) callTimes() []time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]time.Time(nil), g.calls...)
}

func loc(id int64, name, address string) *model.Location {
	l := model.NewLocation(name)
	l.ID = id
	l.Address = address
	return l
}
