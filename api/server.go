// Package api - Thin HTTP wrapper around the catalog import
// The API is ONLY responsible for: triggering runs, reporting status, output serialization.
// The API NEVER performs catalog logic.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"fe-catalog/db/ingestion"
	"fe-catalog/internal/errors"
	"fe-catalog/internal/logging"
	"fe-catalog/internal/metrics"
)

// APIVersion is reported by GET /version
const APIVersion = "2"

// Installer runs one catalog import
type Installer interface {
	Install(ctx context.Context, force bool) (*ingestion.Result, error)
}

// Server is the API server
type Server struct {
	installer Installer
	status    *ingestion.ImportStatus
	mux       *http.ServeMux
	version   string
	log       *zap.Logger
	metrics   *metrics.Metrics

	// running serialises the imports
	running sync.Mutex
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithMetrics records imports and requests, and serves GET /metrics
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a new API server. status must be the progress tracker
// the installer reports to.
func NewServer(version string, installer Installer, status *ingestion.ImportStatus, log *zap.Logger, options ...ServerOption) *Server {
	if log == nil {
		log = logging.Named("api")
	}
	s := &Server{
		installer: installer,
		status:    status,
		mux:       http.NewServeMux(),
		version:   version,
		log:       log,
	}
	for _, o := range options {
		o(s)
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /catalog/install", s.handleInstall)
	s.mux.HandleFunc("GET /catalog/status", s.handleStatus)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// InstallResponse is the body of a successful POST /catalog/install
type InstallResponse struct {
	InstancePrices int   `json:"nb_instance_prices"`
	InstanceTypes  int   `json:"nb_instance_types"`
	Locations      int   `json:"nb_locations"`
	SupportPrices  int   `json:"nb_support_prices"`
	Saves          int   `json:"saves"`
	DurationMs     int64 `json:"duration_ms"`
}

// handleInstall handles POST /catalog/install?force=bool
func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, errors.Config("invalid force parameter", err))
			return
		}
		force = b
	}

	if !s.running.TryLock() {
		s.writeError(w, errors.New(errors.TypeConflict, "an import is already running"))
		return
	}
	defer s.running.Unlock()

	// a run is never cancelled midway, a client disconnect leaves it running
	ctx := context.WithoutCancel(r.Context())

	start := time.Now()
	s.log.Info("Catalog install requested", zap.Bool("force", force))
	result, err := s.installer.Install(ctx, force)
	s.status.Finish(result, err)
	s.recordImport(time.Since(start), result, err)
	if err != nil {
		s.log.Error("Catalog install failed", zap.Error(err))
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, InstallResponse{
		InstancePrices: result.InstancePrices,
		InstanceTypes:  result.InstanceTypes,
		Locations:      result.Locations,
		SupportPrices:  result.SupportPrices,
		Saves:          result.Saves,
		DurationMs:     time.Since(start).Milliseconds(),
	}, http.StatusOK)
}

// handleStatus handles GET /catalog/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.status.Snapshot(), http.StatusOK)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"version":     s.version,
		"engine":      "fe-catalog",
		"api_version": APIVersion,
	}, http.StatusOK)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, status := "INTERNAL_ERROR", http.StatusInternalServerError
	var typed *errors.Error
	if stderrors.As(err, &typed) {
		code = string(typed.Type)
		status = statusOf(typed.Type)
	}
	s.writeJSON(w, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": err.Error(),
		},
	}, status)
}

func statusOf(t errors.Type) int {
	switch t {
	case errors.TypeConflict:
		return http.StatusConflict
	case errors.TypeConfig:
		return http.StatusBadRequest
	case errors.TypeNotFound:
		return http.StatusNotFound
	case errors.TypeIO:
		return http.StatusBadGateway
	case errors.TypeParsing:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) recordImport(elapsed time.Duration, result *ingestion.Result, err error) {
	if s.metrics == nil {
		return
	}
	status, prices, writes := metrics.StatusSuccess, 0, 0
	if err != nil {
		status = metrics.StatusFailure
	}
	if result != nil {
		prices, writes = result.InstancePrices, result.Saves
	}
	s.metrics.RecordImport(status, elapsed.Seconds(), prices, writes)
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		s.mux.ServeHTTP(w, r)
		return
	}
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	// the matched pattern keeps the label set bounded
	_, pattern := s.mux.Handler(r)
	if pattern == "" {
		pattern = "unmatched"
	}
	s.metrics.RecordHTTPRequest(r.Method, pattern, strconv.Itoa(rec.status), time.Since(start).Seconds())
}

// ListenAndServe starts the server
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
