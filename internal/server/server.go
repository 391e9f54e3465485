// Package server exposes the governance-check HTTP surface: the /v1/check
// admission endpoint, the observability endpoints (/v1/stats, /metrics) and
// liveness. It is the request-handling collaborator of the rate limiter and
// the audit pipeline; neither of those blocks a response.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aegisai/aegis-core/pkg/audit"
	"github.com/aegisai/aegis-core/pkg/domain"
	"github.com/aegisai/aegis-core/pkg/ratelimit"
	"github.com/aegisai/aegis-core/pkg/telemetry"
)

// Config holds the server's request-handling knobs.
type Config struct {
	// RiskThreshold is the score at or above which an operation is blocked.
	RiskThreshold int
}

// Server wires the limiter, scorer and audit pipeline behind the check API.
type Server struct {
	cfg      Config
	limiter  *ratelimit.Limiter
	pipeline *audit.Pipeline
	scorer   domain.RiskScorer
	auth     Authenticator
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	httpServer *http.Server
}

// New assembles a Server. A nil auth falls back to the header reference
// implementation; a nil logger to slog.Default().
func New(cfg Config, limiter *ratelimit.Limiter, pipeline *audit.Pipeline, scorer domain.RiskScorer, auth Authenticator, metrics *telemetry.Metrics, logger *slog.Logger) *Server {
	if auth == nil {
		auth = HeaderAuthenticator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	return &Server{
		cfg:      cfg,
		limiter:  limiter,
		pipeline: pipeline,
		scorer:   scorer,
		auth:     auth,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handler builds the full route tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/check", s.handleCheck)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.Handle("GET /metrics", s.metrics.Handler())

	instrumented := otelhttp.NewHandler(s.withRequestLogging(mux), "aegis.core")

	// Liveness stays outside tracing and request logging so probes are cheap
	// and silent.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		instrumented.ServeHTTP(w, r)
	})
}

// Start binds addr and serves in a background goroutine. The resolved address
// (useful with :0) is logged at startup.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.logger.Info("Server listening", "addr", listener.Addr().String())

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed", "error", err)
		}
	}()

	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
