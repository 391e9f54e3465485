package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/aegisai/aegis-core/pkg/domain"
)

// DefaultQueueCapacity bounds the queue when no capacity is configured.
const DefaultQueueCapacity = 1000

// Queue is the bounded buffer between request handlers and the batch writer.
// Enqueue never blocks and never panics; when the buffer is full the newest
// entry is dropped and counted. Any number of goroutines may produce; only the
// batch writer consumes.
type Queue struct {
	ch      chan *domain.AuditEntry
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewQueue creates a queue holding up to capacity entries. Non-positive
// capacities fall back to DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		ch: make(chan *domain.AuditEntry, capacity),
	}
}

// Enqueue offers one entry to the queue. It returns false, without blocking,
// when the queue is full or closed.
func (q *Queue) Enqueue(entry *domain.AuditEntry) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.dropped.Add(1)
		return false
	}

	select {
	case q.ch <- entry:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Dequeue blocks until an entry is available or ctx is done. Ok is false only
// on cancellation. Used exclusively by the batch writer.
func (q *Queue) Dequeue(ctx context.Context) (*domain.AuditEntry, bool) {
	select {
	case entry := <-q.ch:
		return entry, true
	case <-ctx.Done():
		return nil, false
	}
}

// DrainRemaining removes and returns everything currently buffered, without
// blocking. Used by shutdown after intake has stopped.
func (q *Queue) DrainRemaining() []*domain.AuditEntry {
	var entries []*domain.AuditEntry
	for {
		select {
		case entry := <-q.ch:
			entries = append(entries, entry)
		default:
			return entries
		}
	}
}

// Close stops intake. Subsequent Enqueue calls return false. Close is
// idempotent and never panics on concurrent producers.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Size reports the number of buffered entries.
func (q *Queue) Size() int { return len(q.ch) }

// Capacity reports the configured bound.
func (q *Queue) Capacity() int { return cap(q.ch) }

// Dropped reports how many entries were rejected because the queue was full or
// closed.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }
