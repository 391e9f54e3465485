package storage

import (
	"context"
	"sync"

	"github.com/aegisai/aegis-core/pkg/domain"
)

// Memory is an in-memory BatchStore for tests and database-less development.
// Writes can be made to fail on demand to exercise the pipeline's discard path.
type Memory struct {
	mu         sync.Mutex
	entries    []*domain.AuditEntry
	writeCalls int
	failWith   error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// WriteBatch appends the batch, or fails wholesale when a failure is injected.
func (m *Memory) WriteBatch(_ context.Context, entries []*domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeCalls++
	if m.failWith != nil {
		return m.failWith
	}
	m.entries = append(m.entries, entries...)
	return nil
}

// FailWith makes subsequent writes return err; nil restores success.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Entries returns a copy of everything persisted so far.
func (m *Memory) Entries() []*domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// WriteCalls reports how many WriteBatch calls were made, including failures.
func (m *Memory) WriteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeCalls
}
