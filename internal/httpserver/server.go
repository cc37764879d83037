package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/frauddesk/control-plane/internal/auth"
	"github.com/frauddesk/control-plane/internal/events"
	"github.com/frauddesk/control-plane/internal/orchestrator"
	"github.com/frauddesk/control-plane/internal/registry"
)

type Server struct {
	orch     *orchestrator.Orchestrator
	store    registry.Store
	recorder *events.FileRecorder
	verifier *auth.Verifier
}

func New(orch *orchestrator.Orchestrator, store registry.Store, recorder *events.FileRecorder, verifier *auth.Verifier) *Server {
	return &Server{orch: orch, store: store, recorder: recorder, verifier: verifier}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Minute))

	r.Get("/health", s.handleHealth)

	r.Route("/control-plane", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.verifier.Middleware)
			r.Post("/run", s.handleRun)
		})
		r.Get("/cycles/{cycleID}", s.handleGetCycle)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC(),
	}
	if err := s.store.Ping(ctx); err != nil {
		status["ok"] = false
		status["registry"] = err.Error()
		respondJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	result, err := s.orch.RunCycle(r.Context())
	if err != nil {
		// Artifacts persisted before the failure remain on disk; report the
		// cycle ID so the partial trail can be inspected.
		respondJSON(w, http.StatusBadGateway, map[string]string{
			"error":   err.Error(),
			"cycleId": result.CycleID,
		})
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	cycleID := chi.URLParam(r, "cycleID")
	records, err := s.recorder.ListCycleRecords(cycleID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			respondError(w, http.StatusNotFound, "unknown cycle")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
