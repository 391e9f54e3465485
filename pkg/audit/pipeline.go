package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aegisai/aegis-core/pkg/domain"
	"github.com/aegisai/aegis-core/pkg/telemetry"
)

// Config sizes the pipeline. Zero fields fall back to the package defaults.
type Config struct {
	QueueCapacity int
	BatchSize     int
	FlushInterval time.Duration
}

// Pipeline owns the audit queue and its batch writer: an explicit service
// object with constructor-injected configuration and a start/stop lifecycle,
// shared by every request handler.
type Pipeline struct {
	cfg     Config
	queue   *Queue
	writer  *writer
	logger  *slog.Logger
	metrics *telemetry.Metrics

	mu       sync.Mutex
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	leftover chan []*domain.AuditEntry
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics sets the metrics sink. Defaults to a private, unexposed registry.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a stopped pipeline writing batches to store.
func NewPipeline(store domain.BatchStore, cfg Config, opts ...Option) *Pipeline {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > cfg.QueueCapacity {
		cfg.BatchSize = cfg.QueueCapacity
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}

	p := &Pipeline{
		cfg:      cfg,
		queue:    NewQueue(cfg.QueueCapacity),
		logger:   slog.Default(),
		leftover: make(chan []*domain.AuditEntry, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = telemetry.NewMetrics()
	}

	p.writer = &writer{
		queue:         p.queue,
		store:         store,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		logger:        p.logger,
		metrics:       p.metrics,
	}

	return p
}

// Start spawns the batch writer. Calling Start on a running pipeline logs a
// warning and is a no-op.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		p.logger.Warn("Audit pipeline already started")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.started = true

	go func() {
		p.leftover <- p.writer.run(ctx)
	}()

	p.logger.Info("Audit pipeline started",
		"queue_capacity", p.cfg.QueueCapacity,
		"batch_size", p.cfg.BatchSize,
		"flush_interval", p.cfg.FlushInterval)
}

// Log offers one entry to the queue. It never blocks: a full or closed queue
// rejects the entry, which is counted and invisible to the request caller.
func (p *Pipeline) Log(entry *domain.AuditEntry) bool {
	accepted := p.queue.Enqueue(entry)
	p.metrics.RecordEnqueue(accepted)
	p.metrics.SetQueueDepth(p.queue.Size())
	if !accepted {
		p.logger.Warn("Audit queue full - dropping entry", "entry_id", entry.ID)
	}
	return accepted
}

// Stop shuts the pipeline down: intake closes, the writer's wait is cancelled
// (an in-flight flush runs to completion), and every entry still queued is
// drained and flushed synchronously together with the writer's partial batch.
// Entries enqueued before Stop are only ever lost to a failing durable write,
// never to shutdown itself. The ctx deadline bounds the wait for the writer.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.mu.Unlock()

	p.queue.Close()
	p.cancel()

	var pending []*domain.AuditEntry
	select {
	case pending = <-p.leftover:
	case <-ctx.Done():
		return fmt.Errorf("audit pipeline stop: %w", ctx.Err())
	}

	pending = append(pending, p.queue.DrainRemaining()...)
	if len(pending) > 0 {
		p.logger.Info("Flushing remaining audit entries", "entries", len(pending))
	}
	for len(pending) > 0 {
		n := min(len(pending), p.cfg.BatchSize)
		p.writer.flush(pending[:n])
		pending = pending[n:]
	}

	p.logger.Info("Audit pipeline stopped",
		"written", p.writer.written.Load(),
		"failed", p.writer.failed.Load(),
		"dropped", p.queue.Dropped())
	return nil
}

// Stats is the observability snapshot polled by monitoring.
type Stats struct {
	QueueSize            int     `json:"queue_size"`
	QueueCapacity        int     `json:"queue_capacity"`
	BatchSize            int     `json:"batch_size"`
	FlushIntervalSeconds float64 `json:"flush_interval_seconds"`
	Dropped              int64   `json:"dropped"`
	Written              int64   `json:"written"`
	Failed               int64   `json:"failed"`
}

// Stats reports the current pipeline state.
func (p *Pipeline) Stats() Stats {
	return Stats{
		QueueSize:            p.queue.Size(),
		QueueCapacity:        p.queue.Capacity(),
		BatchSize:            p.cfg.BatchSize,
		FlushIntervalSeconds: p.cfg.FlushInterval.Seconds(),
		Dropped:              p.queue.Dropped(),
		Written:              p.writer.written.Load(),
		Failed:               p.writer.failed.Load(),
	}
}
