package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ResultSource returns the latest finished result, or nil before the first
// successful run.
type ResultSource interface {
	Latest() *domain.Result
}

// Server exposes health, readiness, metrics and result HTTP endpoints.
type Server struct {
	httpServer *http.Server
	results    ResultSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz and /metrics plus
// the read-only result routes under /v1.
func NewServer(addr string, ready sharedobs.ReadinessChecker, results ResultSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		results: results,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/correlation/summary", s.withResult(s.handleSummary))
	mux.HandleFunc("GET /v1/correlation/grid", s.withResult(s.handleGrid))
	mux.HandleFunc("GET /v1/annual", s.withResult(s.handleAnnual))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type resultHandler func(w http.ResponseWriter, r *http.Request, res *domain.Result)

func (s *Server) withResult(h resultHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := s.results.Latest()
		if res == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no result available yet"})
			return
		}
		h(w, r, res)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request, res *domain.Result) {
	writeJSON(w, http.StatusOK, res.Summarize())
}

type annualResponse struct {
	Years      []int                `json:"years"`
	Chart      []domain.ChartRow    `json:"chart"`
	EVIAnomaly []domain.AnnualValue `json:"evi_anomaly"`
	LSTAnomaly []domain.AnnualValue `json:"lst_anomaly"`
}

func (s *Server) handleAnnual(w http.ResponseWriter, _ *http.Request, res *domain.Result) {
	writeJSON(w, http.StatusOK, annualResponse{
		Years:      res.Years,
		Chart:      res.Chart,
		EVIAnomaly: res.Vegetation.AnnualAnomaly,
		LSTAnomaly: res.Temperature.AnnualAnomaly,
	})
}

type gridResponse struct {
	Name   string       `json:"name"`
	Shape  raster.Shape `json:"shape"`
	Values []*float64   `json:"values"`
}

// handleGrid serves the forest-masked correlation, or the unmasked one with
// ?masked=false.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request, res *domain.Result) {
	name, g := "forest_correlation", res.Final
	switch r.URL.Query().Get("masked") {
	case "", "true":
	case "false":
		name, g = "correlation", res.Correlation
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "masked must be true or false"})
		return
	}
	writeJSON(w, http.StatusOK, gridResponse{Name: name, Shape: g.Shape(), Values: g.Samples()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
