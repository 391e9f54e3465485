package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/aegisai/aegis-core/pkg/audit"
	"github.com/aegisai/aegis-core/pkg/domain"
)

const maxBodyBytes = 1 << 20

// CheckRequest is the body of POST /v1/check. Metadata is a flat scalar map;
// raw content fields are rejected before this struct is even decoded.
type CheckRequest struct {
	Model     string          `json:"model"`
	Operation string          `json:"operation"`
	Metadata  domain.Metadata `json:"metadata"`
}

// CheckResponse is the governance decision returned to the caller.
type CheckResponse struct {
	Allowed   bool   `json:"allowed"`
	RiskScore int    `json:"risk_score"`
	Reason    string `json:"reason"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	principal, err := s.auth.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTHN_FAILED", "missing or invalid caller identity")
		return
	}

	dec, err := s.limiter.Decide(r.Context(), principal.APIKeyID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCallerKey) {
			// Fail closed: a malformed identity is a request error, not an
			// over-budget caller.
			writeError(w, http.StatusBadRequest, "INVALID_CALLER", "caller identity key is malformed")
			return
		}
		s.logger.Error("Rate limit decision failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "admission check failed")
		return
	}

	setRateLimitHeaders(w, dec)
	if !dec.Allowed {
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "unreadable request body")
		return
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}
	if containsForbiddenFields(raw) {
		writeError(w, http.StatusBadRequest, "FORBIDDEN_CONTENT", "request contains forbidden content fields")
		return
	}

	var req CheckRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "metadata values must be flat scalars")
		return
	}
	if req.Model == "" || req.Operation == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "model and operation are required")
		return
	}

	score, reason := s.scorer.Score(req.Model, req.Operation, req.Metadata)
	allowed := score < s.cfg.RiskThreshold

	// Audit is strictly fire-and-forget: a full queue drops the entry and the
	// caller still gets the decision.
	entry := domain.NewAuditEntry(principal.CustomerID, principal.APIKeyID,
		req.Model, req.Operation, req.Metadata, score, allowed, reason)
	s.pipeline.Log(entry)

	writeJSON(w, http.StatusOK, CheckResponse{
		Allowed:   allowed,
		RiskScore: score,
		Reason:    reason,
	})
}

// StatsResponse is the observability snapshot served by GET /v1/stats.
type StatsResponse struct {
	Backend       string      `json:"ratelimit_backend"`
	LocalBuckets  int         `json:"ratelimit_local_buckets"`
	Audit         audit.Stats `json:"audit"`
	RiskThreshold int         `json:"risk_threshold"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		Backend:       s.limiter.Backend().String(),
		LocalBuckets:  s.limiter.LocalBuckets(),
		Audit:         s.pipeline.Stats(),
		RiskThreshold: s.cfg.RiskThreshold,
	})
}

func setRateLimitHeaders(w http.ResponseWriter, dec domain.Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.FormatInt(dec.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(dec.Remaining, 10))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(dec.ResetAt.Unix(), 10))
	h.Set("X-RateLimit-Backend", dec.Backend.String())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, domain.ErrorResponse{Code: code, Message: message})
}
