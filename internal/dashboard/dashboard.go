// Package dashboard serves the reporting API consumed by the marketing
// dashboard frontend.
package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sweet-james/adreport/internal/model"
	"github.com/sweet-james/adreport/internal/report"
)

// Server holds the HTTP surface over a report engine.
type Server struct {
	engine *report.Engine
}

// NewServer creates the API server.
func NewServer(engine *report.Engine) *Server {
	return &Server{engine: engine}
}

// Router builds the chi router with CORS for the given allowed origins.
func (s *Server) Router(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/dashboard-data", s.handleDashboard)
		r.Get("/comparison-data", s.handleComparison)
		r.Get("/annual-data", s.handleAnnual)
		r.Get("/current-month-daily", s.handleCurrentMonthDaily)

		r.Get("/forecast-pacing", s.handlePacing)
		r.Get("/forecast-projections", s.handleProjections)
		r.Get("/forecast-daily-trend", s.handleDailyTrend)
		r.Get("/forecast-settings", s.handleGetSettings)
		r.Post("/forecast-settings", s.handleSaveSettings)

		r.Get("/utm-mapping", s.handleGetUTMMappings)
		r.Post("/utm-mapping", s.handleSetUTMMapping)
		r.Delete("/utm-mapping", s.handleDeleteUTMMapping)

		r.Get("/campaign-mapping", s.handleGetCampaignMappings)
		r.Post("/campaign-mapping", s.handleSaveCampaignMappings)

		r.Get("/cache-stats", s.handleCacheStats)
		r.Post("/cache-clear", s.handleCacheClear)
	})

	return r
}

// parseQuery reads the shared report parameters from the URL.
func parseQuery(r *http.Request) report.Query {
	q := r.URL.Query()
	return report.Query{
		Period:     q.Get("period"),
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
		ActiveOnly: q.Get("active_only") == "true",
		Filters: model.ExclusionFilters{
			IncludeSpam:      q.Get("include_spam") == "true",
			IncludeAbandoned: q.Get("include_abandoned") == "true",
			IncludeDuplicate: q.Get("include_duplicate") == "true",
		},
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status(r.Context()))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.engine.Dashboard(r.Context(), parseQuery(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	c, err := s.engine.Comparison(r.Context(), parseQuery(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAnnual(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year <= 0 {
		writeError(w, http.StatusBadRequest, errBadYear)
		return
	}
	months, err := s.engine.Annual(r.Context(), year, parseQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "months": months})
}

func (s *Server) handleCurrentMonthDaily(w http.ResponseWriter, r *http.Request) {
	md, err := s.engine.CurrentMonthDaily(r.Context(), parseQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func (s *Server) handlePacing(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Pacing(r.Context(), parseQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Projections(r.Context(), parseQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDailyTrend(w http.ResponseWriter, r *http.Request) {
	tr, err := s.engine.DailyTrend(r.Context(), parseQuery(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.engine.ForecastSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.ForecastSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.SaveForecastSettings(r.Context(), &settings); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleGetUTMMappings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Taxonomy().UTM())
}

func (s *Server) handleSetUTMMapping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UTM    string `json:"utm"`
		Bucket string `json:"bucket"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.SetUTMMapping(r.Context(), req.UTM, req.Bucket); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"utm": req.UTM, "bucket": req.Bucket})
}

func (s *Server) handleDeleteUTMMapping(w http.ResponseWriter, r *http.Request) {
	utm := r.URL.Query().Get("utm")
	if utm == "" {
		writeError(w, http.StatusBadRequest, errUTMRequired)
		return
	}
	existed, err := s.engine.DeleteUTMMapping(r.Context(), utm)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, errUTMNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": utm})
}

func (s *Server) handleGetCampaignMappings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Taxonomy().Campaigns())
}

func (s *Server) handleSaveCampaignMappings(w http.ResponseWriter, r *http.Request) {
	var m map[string][]string
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.SaveCampaignMappings(r.Context(), m); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"buckets": len(m)})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Cache().Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	s.engine.Cache().Clear()
	zap.L().Info("report cache cleared via api")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encoding response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
