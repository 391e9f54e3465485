package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aegisai/aegis-core/pkg/domain"
	"github.com/aegisai/aegis-core/pkg/telemetry"
)

// Default batching parameters, matching the queue's sizing for a service doing
// on the order of a hundred checks per second.
const (
	DefaultBatchSize     = 50
	DefaultFlushInterval = 5 * time.Second
)

// writer is the single background consumer of the queue. It accumulates
// entries into a batch and flushes when the batch is full or the flush
// interval elapses with a non-empty batch. Failed writes are logged, counted
// and discarded; the loop itself never dies before cancellation.
type writer struct {
	queue         *Queue
	store         domain.BatchStore
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	metrics       *telemetry.Metrics

	written atomic.Int64
	failed  atomic.Int64
}

// run consumes the queue until ctx is cancelled and returns whatever partial
// batch it was accumulating, so shutdown can fold it into the final flush.
// Each wait is bounded by the time remaining until the next scheduled flush.
// An in-flight flush always runs to completion; only the wait is cancellable.
func (w *writer) run(ctx context.Context) []*domain.AuditEntry {
	batch := make([]*domain.AuditEntry, 0, w.batchSize)
	nextFlush := time.Now().Add(w.flushInterval)

	for {
		waitCtx, cancel := context.WithDeadline(ctx, nextFlush)
		entry, ok := w.queue.Dequeue(waitCtx)
		cancel()

		if !ok {
			if ctx.Err() != nil {
				return batch
			}
			// Flush-interval timeout. Empty batches are never written.
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
			nextFlush = time.Now().Add(w.flushInterval)
			continue
		}

		batch = append(batch, entry)
		if len(batch) >= w.batchSize {
			w.flush(batch)
			batch = batch[:0]
			nextFlush = time.Now().Add(w.flushInterval)
		}
	}
}

// flush performs one durable write and discards the batch regardless of
// outcome. At-most-once: a failed batch is never retried.
func (w *writer) flush(batch []*domain.AuditEntry) {
	entries := make([]*domain.AuditEntry, len(batch))
	copy(entries, batch)

	start := time.Now()
	err := w.store.WriteBatch(context.Background(), entries)
	w.metrics.RecordFlush(len(entries), time.Since(start), err)
	w.metrics.SetQueueDepth(w.queue.Size())

	if err != nil {
		w.failed.Add(int64(len(entries)))
		w.logger.Error("Failed to write audit batch - entries discarded",
			"entries", len(entries), "error", err)
		return
	}

	w.written.Add(int64(len(entries)))
	w.logger.Debug("Flushed audit batch", "entries", len(entries))
}
