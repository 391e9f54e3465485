package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordDecision(t *testing.T) {
	m := NewMetrics()

	m.RecordDecision("redis", true)
	m.RecordDecision("redis", true)
	m.RecordDecision("memory", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.decisionsTotal.WithLabelValues("redis", "allowed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.decisionsTotal.WithLabelValues("memory", "denied")))
}

func TestMetrics_RecordFlush(t *testing.T) {
	m := NewMetrics()

	m.RecordFlush(50, 20*time.Millisecond, nil)
	m.RecordFlush(10, 5*time.Millisecond, errors.New("db down"))

	assert.Equal(t, float64(50), testutil.ToFloat64(m.entriesWritten))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.flushFailures))
}

func TestMetrics_RecordEnqueue(t *testing.T) {
	m := NewMetrics()

	m.RecordEnqueue(true)
	m.RecordEnqueue(true)
	m.RecordEnqueue(false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.entriesQueued))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.entriesDropped))
}

func TestMetrics_HandlerServesRegistry(t *testing.T) {
	m := NewMetrics()
	m.RecordFallback()
	m.RecordSweep(3)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "aegis_ratelimit_fallbacks_total 1"))
	assert.True(t, strings.Contains(body, "aegis_ratelimit_buckets_swept_total 3"))
}
