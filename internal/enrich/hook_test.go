package enrich

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geodir/internal/model"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []int64
}

func (d *recordingDispatcher) Dispatch(_ context.Context, l *model.Location) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, l.ID)
}

func TestShouldGeocode(t *testing.T) {
	assert.True(t, ShouldGeocode([]string{model.FieldName, model.FieldAddress}))
	assert.False(t, ShouldGeocode([]string{model.FieldPhone}))
	assert.False(t, ShouldGeocode(nil))
}

func TestHook_DispatchPolicy(t *testing.T) {
	d := &recordingDispatcher{}
	h := NewHook(d)
	l := loc(5, "Cafenea", "Str. Franceză 2")

	h.AfterCreate(context.Background(), l)
	assert.False(t, h.AfterUpdate(context.Background(), l, []string{model.FieldPhone}))
	assert.False(t, h.AfterUpdate(context.Background(), l, []string{model.FieldDescription, model.FieldPublished}))
	assert.True(t, h.AfterUpdate(context.Background(), l, []string{model.FieldAddress}))

	assert.Equal(t, []int64{5, 5}, d.ids)
}

func TestHook_PhoneEditNeverCallsGeocoder(t *testing.T) {
	l := loc(1, "Ateneu", "Str. Franklin 1")
	store := newFakeStore(l)
	gc := &fakeGeocoder{points: map[string]model.Point{l.Address: athenaeum}}
	h := NewHook(SyncDispatcher{Pipeline: newTestPipeline(gc, store)})

	changed := model.LocationPatch{Phone: ptrTo("0213152567")}.Apply(l)
	h.AfterUpdate(context.Background(), l, changed)

	assert.Zero(t, gc.callCount())
	assert.Zero(t, store.updateCount())
	assert.Nil(t, store.coordinates(1))
}

func TestHook_SyncAddressEditGeocodes(t *testing.T) {
	l := loc(1, "Ateneu", "old address")
	store := newFakeStore(l)
	gc := &fakeGeocoder{points: map[string]model.Point{"Str. Franklin 1": athenaeum}}
	h := NewHook(SyncDispatcher{Pipeline: newTestPipeline(gc, store)})

	rec := *l
	changed := model.LocationPatch{Address: ptrTo("Str. Franklin 1")}.Apply(&rec)
	store.locations[1].Address = rec.Address // committed before the hook runs
	require.True(t, h.AfterUpdate(context.Background(), &rec, changed))

	assert.Equal(t, 1, gc.callCount())
	assert.Equal(t, &athenaeum, store.coordinates(1))
}

func TestWorker_ProcessesQueue(t *testing.T) {
	store := newFakeStore(loc(1, "Ateneu", "Str. Franklin 1"), loc(2, "Herăstrău", "Șos. Kiseleff 32"))
	gc := &fakeGeocoder{points: map[string]model.Point{
		"Str. Franklin 1":  athenaeum,
		"Șos. Kiseleff 32": herastrau,
	}}
	w := NewWorker(newTestPipeline(gc, store), 4)
	h := NewHook(w)

	// The worker reloads by id, so the dispatched copy may be stale.
	h.AfterCreate(context.Background(), &model.Location{ID: 1})
	h.AfterCreate(context.Background(), &model.Location{ID: 2})
	h.AfterCreate(context.Background(), &model.Location{ID: 99})
	assert.Equal(t, 3, w.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return store.updateCount() == 2 && w.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, &athenaeum, store.coordinates(1))
	assert.Equal(t, &herastrau, store.coordinates(2))
	assert.Equal(t, 2, gc.callCount())
}

func TestWorker_FullQueueDrops(t *testing.T) {
	store := newFakeStore(loc(1, "a", "A 1"), loc(2, "b", "B 2"))
	w := NewWorker(newTestPipeline(&fakeGeocoder{}, store), 1)

	w.Dispatch(context.Background(), &model.Location{ID: 1})
	w.Dispatch(context.Background(), &model.Location{ID: 2})
	assert.Equal(t, 1, w.Pending())
}

func ptrTo[T any](v T) *T { return &v }
