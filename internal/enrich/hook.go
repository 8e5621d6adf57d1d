package enrich

import (
	"context"

	"github.com/sells-group/geodir/internal/model"
)

// Dispatcher hands a saved record over for geocoding.
type Dispatcher interface {
	Dispatch(ctx context.Context, l *model.Location)
}

// ShouldGeocode reports whether an update with the given changed fields
// needs a new geocode.
func ShouldGeocode(changed []string) bool {
	return model.Changed(changed, model.FieldAddress)
}

// Hook runs after a record's own fields are committed and decides whether
// to geocode it.
type Hook struct {
	dispatcher Dispatcher
}

// NewHook creates a Hook that dispatches through d.
func NewHook(d Dispatcher) *Hook {
	return &Hook{dispatcher: d}
}

// AfterCreate dispatches every newly created record.
func (h *Hook) AfterCreate(ctx context.Context, l *model.Location) {
	h.dispatcher.Dispatch(ctx, l)
}

// AfterUpdate dispatches l only when its address changed, and reports
// whether it did.
func (h *Hook) AfterUpdate(ctx context.Context, l *model.Location, changed []string) bool {
	if !ShouldGeocode(changed) {
		return false
	}
	h.dispatcher.Dispatch(ctx, l)
	return true
}

// SyncDispatcher geocodes in the caller's goroutine.
type SyncDispatcher struct {
	Pipeline *Pipeline
}

// Dispatch implements Dispatcher.
func (d SyncDispatcher) Dispatch(ctx context.Context, l *model.Location) {
	d.Pipeline.EnrichOne(ctx, l)
}
