// Package httpadapter exposes the pipeline's read operations as a JSON API,
// plus health, readiness, and metrics endpoints. It is a thin wrapper: all
// aggregation lives in the pipeline.
package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/covid-data-service/internal/aggregate"
	"github.com/couchcryptid/covid-data-service/internal/domain"
)

// DataService is the pipeline surface the API consumes.
type DataService interface {
	Summary(ctx context.Context) ([]domain.CountrySummary, []domain.DatePoint, error)
	CountryDetail(ctx context.Context, country string) ([]domain.CountryDetailRow, error)
	TopN(ctx context.Context, n int) ([]domain.CountrySummary, error)
	GeoPoints(ctx context.Context) ([]domain.Observation, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the dataset API over HTTP.
type Server struct {
	httpServer *http.Server
	svc        DataService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the data routes and the
// healthz/readyz/metrics operational routes.
func NewServer(addr string, svc DataService, logger *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/countries/{name}", s.handleCountryDetail)
		r.Get("/top", s.handleTopN)
		r.Get("/geo", s.handleGeoPoints)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
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

// --- handlers ---

type summaryResponse struct {
	ByCountry  []domain.CountrySummary `json:"by_country"`
	Timeseries []domain.DatePoint      `json:"timeseries"`
	Totals     domain.Totals           `json:"totals"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	byCountry, series, err := s.svc.Summary(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		ByCountry:  byCountry,
		Timeseries: series,
		Totals:     aggregate.GrandTotals(byCountry),
	})
}

type countryDetailResponse struct {
	Country string                    `json:"country"`
	Rows    []domain.CountryDetailRow `json:"rows"`
	Totals  domain.Totals             `json:"totals"`
}

func (s *Server) handleCountryDetail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	rows, err := s.svc.CountryDetail(r.Context(), name)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	// Emptiness means unknown country, by contract distinct from an error.
	if len(rows) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "country not found"})
		return
	}

	var totals domain.Totals
	for _, row := range rows {
		totals.Confirmed += row.Confirmed
		totals.Deaths += row.Deaths
		totals.Recovered += row.Recovered
	}

	writeJSON(w, http.StatusOK, countryDetailResponse{Country: name, Rows: rows, Totals: totals})
}

func (s *Server) handleTopN(w http.ResponseWriter, r *http.Request) {
	n := 0 // pipeline applies the configured default
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be a positive integer"})
			return
		}
		n = parsed
	}

	top, err := s.svc.TopN(r.Context(), n)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (s *Server) handleGeoPoints(w http.ResponseWriter, r *http.Request) {
	points, err := s.svc.GeoPoints(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "data load failed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
