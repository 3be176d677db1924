// Package api exposes the trust engine over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mboahomes/trust-engine/internal/cache"
	"github.com/mboahomes/trust-engine/internal/directory"
	"github.com/mboahomes/trust-engine/internal/faults"
	"github.com/mboahomes/trust-engine/internal/model"
	"github.com/mboahomes/trust-engine/internal/scoring"
	"github.com/mboahomes/trust-engine/internal/stats"
)

// Server serves scoring, directory and stats endpoints.
type Server struct {
	scheduler *cache.Scheduler
	directory *directory.Engine
	stats     *stats.Aggregator
}

func NewServer(scheduler *cache.Scheduler, dir *directory.Engine, agg *stats.Aggregator) *Server {
	return &Server{scheduler: scheduler, directory: dir, stats: agg}
}

// Router builds the chi router with CORS and request logging.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/listings/{id}/score", s.handleScore)
	r.Get("/listings/{id}/breakdown", s.handleBreakdown)
	r.Get("/listings/{id}/recommendations", s.handleRecommendations)
	r.Get("/providers", s.handleProviders)
	r.Get("/providers/{id}/stats", s.handleProviderStats)
	r.Post("/admin/recalc", s.handleRecalc)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	snap, err := s.scheduler.GetOrCompute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	snap, err := s.scheduler.GetOrCompute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoring.Breakdown(snap))
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	snap, err := s.scheduler.GetOrCompute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoring.Recommendations(snap))
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := s.directory.Search(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleProviderStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats.ComputeStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRecalc(w http.ResponseWriter, r *http.Request) {
	result, err := s.scheduler.RecomputeExpiredBatch(r.Context(), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseFilters maps query parameters onto directory search filters. Parse
// failures surface as validation errors so they map to 400.
func parseFilters(r *http.Request) (model.SearchFilters, error) {
	q := r.URL.Query()
	filters := model.SearchFilters{
		CityID:    q.Get("city"),
		Specialty: q.Get("specialty"),
		Sort:      model.SortStrategy(q.Get("sort")),
	}

	if v := q.Get("min_rating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filters, faults.NewValidation("min_rating", "must be a number")
		}
		filters.MinRating = f
	}
	if v := q.Get("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filters, faults.NewValidation("available", "must be true or false")
		}
		filters.Available = &b
	}
	if v := q.Get("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filters, faults.NewValidation("featured", "must be true or false")
		}
		filters.Featured = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filters, faults.NewValidation("limit", "must be an integer")
		}
		filters.Limit = n
	}

	lat, lng := q.Get("lat"), q.Get("lng")
	if lat != "" || lng != "" {
		latF, latErr := strconv.ParseFloat(lat, 64)
		lngF, lngErr := strconv.ParseFloat(lng, 64)
		if latErr != nil || lngErr != nil {
			return filters, faults.NewValidation("origin", "lat and lng must both be numbers")
		}
		filters.Origin = &model.Coordinates{Lat: latF, Lng: lngF}
	}

	return filters, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case faults.IsValidation(err):
		status = http.StatusBadRequest
	case faults.IsNotFound(err):
		status = http.StatusNotFound
	case faults.IsDataIntegrity(err):
		status = http.StatusUnprocessableEntity
	case faults.IsStore(err):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
