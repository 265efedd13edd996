// Package chi implements the HTTP transport for the recall API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/joelhooks/joelclaw-sub003/internal/db"
	"github.com/joelhooks/joelclaw-sub003/internal/domain"
	"github.com/joelhooks/joelclaw-sub003/internal/recall"
	"github.com/joelhooks/joelclaw-sub003/internal/secrets"
)

// RecallService runs one recall request through the pipeline.
type RecallService interface {
	Recall(ctx context.Context, req recall.Request) (recall.Result, error)
}

// Server handles the recall HTTP API.
type Server struct {
	recall RecallService
	pinger db.Pinger
	logger *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(svc RecallService, pinger db.Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{recall: svc, pinger: pinger, logger: logger}
}

// Mount registers the API routes on the router.
func (s *Server) Mount(r chi.Router) {
	r.Post("/v1/recall", s.handleRecall)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
}

// handleRecall runs a recall request. With ?format=raw (or Accept:
// text/plain) it emits only the kept hits' observation text, one per line,
// for direct prompt injection.
func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	var req recallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request",
			"invalid request body: "+err.Error(), "send a JSON body with a query field")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "bad_request",
			"query is required", "send a non-empty query")
		return
	}

	res, err := s.recall.Recall(r.Context(), recall.Request{
		Query:            req.Query,
		Category:         req.Category,
		Profile:          req.Profile,
		Context:          req.Context,
		Limit:            req.Limit,
		MinScore:         req.MinScore,
		IncludeHeld:      req.IncludeHeld,
		IncludeDiscarded: req.IncludeDiscarded,
		DisableRewrite:   req.Rewrite != nil && !*req.Rewrite,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if wantsRaw(r) {
		writeRaw(w, res)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(res))
}

// handleHealth reports index connectivity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.pinger.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"index":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDomainError maps pipeline errors onto the stable error shape:
// machine code, human message, suggested fix.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "bad_request",
			err.Error(), "send a non-empty query")
	case errors.Is(err, domain.ErrIndexUnreachable):
		writeError(w, http.StatusBadGateway, "index_unreachable",
			err.Error(), "check that the observation index is running and reachable (redis-cli PING)")
	case errors.Is(err, secrets.ErrUnreachable):
		writeError(w, http.StatusServiceUnavailable, "secrets_daemon_down",
			err.Error(), "start the secrets daemon, then retry")
	case errors.Is(err, secrets.ErrLeaseDenied), errors.Is(err, domain.ErrCredentialUnavailable):
		writeError(w, http.StatusServiceUnavailable, "credential_lease_failed",
			err.Error(), "verify the lease path and the daemon's policy for it")
	default:
		s.logger.Error("recall failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error",
			"recall failed", "retry; inspect recalld logs if the error persists")
	}
}

func wantsRaw(r *http.Request) bool {
	if r.URL.Query().Get("format") == "raw" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/plain")
}

// writeRaw emits kept observation texts one per line with no structure.
func writeRaw(w http.ResponseWriter, res recall.Result) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, h := range res.Hits {
		obs := h.Observation()
		fmt.Fprintln(w, obs.Text())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message, fix string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message, Fix: fix})
}
