package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisai/aegis-core/pkg/domain"
)

func testEntry(i int) *domain.AuditEntry {
	return domain.NewAuditEntry("cust-1", "key-1", "gpt-4", "completion",
		domain.Metadata{"seq": domain.Number(float64(i))}, 0, true, "ok")
}

func TestQueue_EnqueueNeverBlocks(t *testing.T) {
	const capacity = 8
	q := NewQueue(capacity)

	// capacity+1 attempts: exactly capacity succeed, the rest are rejected.
	accepted := 0
	for i := 0; i < capacity+1; i++ {
		if q.Enqueue(testEntry(i)) {
			accepted++
		}
	}

	assert.Equal(t, capacity, accepted)
	assert.Equal(t, int64(1), q.Dropped())
	assert.Equal(t, capacity, q.Size())
	assert.Equal(t, capacity, q.Capacity())
}

func TestQueue_EnqueueAfterClose(t *testing.T) {
	q := NewQueue(4)
	require.True(t, q.Enqueue(testEntry(0)))

	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(testEntry(1)))
	// The entry accepted before Close is still drainable.
	assert.Len(t, q.DrainRemaining(), 1)
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	const capacity = 100
	q := NewQueue(capacity)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if q.Enqueue(testEntry(i)) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, accepted)
	assert.Equal(t, int64(150), q.Dropped())
}

func TestQueue_DequeueHonoursContext(t *testing.T) {
	q := NewQueue(4)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	entry, ok := q.Dequeue(ctx)
	assert.False(t, ok)
	assert.Nil(t, entry)
	assert.Less(t, time.Since(start), time.Second)
}

func TestQueue_DrainPreservesFIFO(t *testing.T) {
	q := NewQueue(16)
	for i := 0; i < 10; i++ {
		e := testEntry(i)
		e.Reason = fmt.Sprintf("entry-%d", i)
		require.True(t, q.Enqueue(e))
	}

	drained := q.DrainRemaining()
	require.Len(t, drained, 10)
	for i, e := range drained {
		assert.Equal(t, fmt.Sprintf("entry-%d", i), e.Reason)
	}
	assert.Empty(t, q.DrainRemaining())
}
