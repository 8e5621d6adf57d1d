package enrich

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/geodir/internal/location"
	"github.com/sells-group/geodir/internal/model"
)

// DefaultQueueSize bounds the worker queue.
const DefaultQueueSize = 256

// Worker geocodes dispatched records in the background, one at a time. It
// reloads each record by id so the latest address is used.
type Worker struct {
	pipeline *Pipeline
	queue    chan int64
	log      *zap.Logger
}

// NewWorker creates a Worker with a queue of size entries.
func NewWorker(p *Pipeline, size int) *Worker {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Worker{
		pipeline: p,
		queue:    make(chan int64, size),
		log:      p.log.With(zap.String("subcomponent", "worker")),
	}
}

// Dispatch implements Dispatcher. When the queue is full the request is
// dropped; the next backlog run picks the record up.
func (w *Worker) Dispatch(_ context.Context, l *model.Location) {
	select {
	case w.queue <- l.ID:
	default:
		w.log.Warn("geocode queue full, dropping request",
			zap.Int64("location_id", l.ID),
			zap.Int("capacity", cap(w.queue)),
		)
	}
}

// Pending returns the number of queued records.
func (w *Worker) Pending() int {
	return len(w.queue)
}

// Run processes the queue until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("geocode worker started", zap.Int("capacity", cap(w.queue)))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("geocode worker stopped", zap.Int("pending", len(w.queue)))
			return nil
		case id := <-w.queue:
			w.process(ctx, id)
		}
	}
}

func (w *Worker) process(ctx context.Context, id int64) {
	l, err := w.pipeline.store.GetLocation(ctx, id)
	if errors.Is(err, location.ErrNotFound) {
		w.log.Debug("geocode worker: location gone", zap.Int64("location_id", id))
		return
	}
	if err != nil {
		w.log.Error("geocode worker: load location", zap.Int64("location_id", id), zap.Error(err))
		return
	}
	w.pipeline.EnrichOne(ctx, l)
}
