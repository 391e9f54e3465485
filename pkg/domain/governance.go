package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Backend identifies which bucket store produced a rate-limit decision.
type Backend int

const (
	// BackendMemory is the process-local fallback store. Atomic within one
	// process only.
	BackendMemory Backend = iota
	// BackendRedis is the distributed store shared by all instances.
	BackendRedis
)

func (b Backend) String() string {
	switch b {
	case BackendRedis:
		return "redis"
	default:
		return "memory"
	}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Remaining int64
	Limit     int64
	ResetAt   time.Time
	Backend   Backend
}

// BucketStore is the counter storage behind the rate limiter. Take consumes one
// token from the fixed-window bucket for key, creating the bucket on first use.
// The read-check-increment sequence MUST be atomic: two concurrent calls for the
// same key must never both succeed when only one token remains. The caller
// supplies now so window expiry is deterministic under test.
type BucketStore interface {
	Take(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (Decision, error)
}

// AuditEntry is one immutable audit record, created exactly once per admission
// decision that reached the logging stage. It carries metadata only, never raw
// request content.
type AuditEntry struct {
	ID         string
	CustomerID string
	APIKeyID   string
	Model      string
	Operation  string
	Metadata   Metadata
	RiskScore  int
	Allowed    bool
	Reason     string
	CreatedAt  time.Time
}

// NewAuditEntry constructs an AuditEntry with a fresh ID and UTC timestamp.
func NewAuditEntry(customerID, apiKeyID, model, operation string, meta Metadata, riskScore int, allowed bool, reason string) *AuditEntry {
	return &AuditEntry{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		APIKeyID:   apiKeyID,
		Model:      model,
		Operation:  operation,
		Metadata:   meta,
		RiskScore:  riskScore,
		Allowed:    allowed,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
}

// BatchStore persists audit entries. WriteBatch is atomic per call from the
// storage layer's perspective: either every entry in the batch is persisted or
// none is. Implementations must never retain the slice after returning.
type BatchStore interface {
	WriteBatch(ctx context.Context, entries []*AuditEntry) error
}

// RiskScorer evaluates the governance risk of one operation. It sees metadata
// only. The returned reason is a short machine-readable tag ("ok" when nothing
// matched); the caller decides the allow threshold.
type RiskScorer interface {
	Score(model, operation string, meta Metadata) (score int, reason string)
}
