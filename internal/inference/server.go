package inference

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/frauddesk/control-plane/internal/models"
)

// Server holds the currently loaded model. Reload swaps it atomically so a
// promotion can take effect without restarting the process.
type Server struct {
	loader *Loader
	logger *log.Logger

	mu      sync.RWMutex
	model   *Model
	version models.ModelVersion
}

func NewServer(loader *Loader, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stdout, "[inference] ", log.LstdFlags)
	}
	return &Server{loader: loader, logger: logger}
}

// Reload fetches the current serving version from the registry. Errors leave
// the previously loaded model in place; a registry with no versions yet is
// tolerated so the service can start ahead of the first training run.
func (s *Server) Reload(ctx context.Context) error {
	model, version, err := s.loader.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoModel) {
			s.logger.Printf("no model registered yet, serving unavailable")
			return nil
		}
		return err
	}
	s.mu.Lock()
	s.model = model
	s.version = version
	s.mu.Unlock()
	s.logger.Printf("loaded model %s version %d stage %s", s.loader.ModelName, version.Version, version.Stage)
	return nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Post("/predict", s.handlePredict)
	r.Post("/reload", s.handleReload)

	return r
}

func (s *Server) current() (*Model, models.ModelVersion) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model, s.version
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	model, version := s.current()
	status := map[string]interface{}{
		"ok":          true,
		"modelLoaded": model != nil,
		"time":        time.Now().UTC(),
	}
	if model != nil {
		status["modelVersion"] = version.Version
		status["modelStage"] = version.Stage
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	model, version := s.current()
	if model == nil {
		respondError(w, http.StatusServiceUnavailable, "no model loaded")
		return
	}

	var txn Transaction
	if err := json.NewDecoder(r.Body).Decode(&txn); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := txn.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	proba, err := model.Score(txn)
	if err != nil {
		s.logger.Printf("scoring failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":        "scoring failed",
			"model_stage":  version.Stage,
			"modelVersion": version.Version,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"fraud_probability": proba,
		"is_fraud":          proba >= FraudThreshold,
		"model_version":     version.Version,
		"model_stage":       version.Stage,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	model, version := s.current()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"modelLoaded": model != nil,
		"version":     version.Version,
		"stage":       version.Stage,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
