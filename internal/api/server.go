// Package api exposes the HTTP interface for the keyword research service.
package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/config"
	"github.com/flin-agency/keyword-research-tool/internal/orchestrator"
	"github.com/flin-agency/keyword-research-tool/internal/ratelimit"
	"github.com/flin-agency/keyword-research-tool/internal/research"
	"github.com/flin-agency/keyword-research-tool/internal/telemetry"
)

const handlerTimeout = 60 * time.Second

// Server wires HTTP handlers to the orchestrator.
type Server struct {
	router  chi.Router
	orch    *orchestrator.Orchestrator
	limiter *ratelimit.Limiter
	cfg     config.Config
	logger  *zap.Logger
	started time.Time
}

// NewServer constructs a Server with middleware and routes.
func NewServer(cfg config.Config, orch *orchestrator.Orchestrator, limiter *ratelimit.Limiter, logger *zap.Logger) *Server {
	s := &Server{
		orch:    orch,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
		started: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(telemetry.Middleware)
	r.Use(timeoutMiddleware(handlerTimeout))

	r.Get("/health", s.health)
	r.Handle("/metrics", telemetry.Handler())

	r.Route("/api/research", func(r chi.Router) {
		r.Post("/", s.createJob)
		r.Get("/config/countries", s.listCountries)
		r.Get("/config/languages", s.listLanguages)
		r.Route("/{job_id}", func(r chi.Router) {
			r.Get("/", s.getJob)
			r.Delete("/", s.deleteJob)
			r.Get("/export", s.exportJob)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type jobOptionsRequest struct {
	MaxPages       *int    `json:"maxPages"`
	FollowLinks    *bool   `json:"followLinks"`
	ScrapeStrategy *string `json:"scrapeStrategy"`
	Algorithm      *string `json:"algorithm"`
	MinClusterSize *int    `json:"minClusterSize"`
	UseAI          *bool   `json:"useAI"`
}

type createJobRequest struct {
	URL           string             `json:"url"`
	Country       string             `json:"country"`
	Language      string             `json:"language"`
	LanguageLabel string             `json:"languageLabel"`
	Options       *jobOptionsRequest `json:"options"`
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	allowed, retryAfter := s.limiter.Allow(s.clientIP(r))
	if !allowed {
		seconds := int(retryAfter.Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      "rate limit exceeded",
			"retryAfter": seconds,
		})
		return
	}

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	job, err := s.orch.StartJob(orchestrator.Request{
		URL:      req.URL,
		Country:  req.Country,
		Language: req.Language,
		Options:  applyOptions(req.Options),
	})
	if err != nil {
		if errors.Is(err, research.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to start research")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

func applyOptions(req *jobOptionsRequest) research.Options {
	opts := research.DefaultOptions()
	if req == nil {
		return opts
	}
	if req.MaxPages != nil {
		opts.MaxPages = *req.MaxPages
	}
	if req.FollowLinks != nil {
		opts.FollowLinks = *req.FollowLinks
	}
	if req.ScrapeStrategy != nil {
		opts.ScrapeStrategy = *req.ScrapeStrategy
	}
	if req.Algorithm != nil {
		opts.Algorithm = *req.Algorithm
	}
	if req.MinClusterSize != nil {
		opts.MinClusterSize = *req.MinClusterSize
	}
	if req.UseAI != nil {
		opts.UseAI = *req.UseAI
	}
	return opts
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := s.orch.Job(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	if err := s.orch.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "research job deleted",
		"jobId":   id,
	})
}

func (s *Server) exportJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := s.orch.Job(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != research.JobStatusCompleted || job.Data == nil {
		writeError(w, http.StatusBadRequest, "job is not completed")
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "keyword-research-"+id+".json"))
		writeJSON(w, http.StatusOK, job.Data)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "keyword-research-"+id+".csv"))
		if err := writeCSV(w, job.Data); err != nil {
			s.logger.Error("csv export failed", zap.String("jobId", id), zap.Error(err))
		}
	default:
		writeError(w, http.StatusBadRequest, "unsupported export format")
	}
}

// writeCSV emits one row per keyword across all clusters.
func writeCSV(w http.ResponseWriter, data *research.Result) error {
	cw := csv.NewWriter(w)
	header := []string{
		"Cluster ID", "Pillar Topic", "Keyword", "Search Volume", "Competition",
		"CPC Low", "CPC High", "Cluster Value Score", "Cluster Total Volume",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, c := range data.Clusters {
		for _, kw := range c.Keywords {
			row := []string{
				strconv.Itoa(c.ID),
				c.PillarTopic,
				kw.Text,
				strconv.Itoa(kw.SearchVolume),
				string(kw.Competition),
				strconv.FormatFloat(kw.CPCLow, 'f', 2, 64),
				strconv.FormatFloat(kw.CPCHigh, 'f', 2, 64),
				fmt.Sprintf("%.2f", float64(c.ValueScore)),
				strconv.Itoa(c.TotalSearchVolume),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Server) listCountries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, research.Countries())
}

func (s *Server) listLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, research.Languages())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
		"services": map[string]bool{
			"metrics": s.orch.MetricsProvider().Healthy(ctx),
			"ai":      s.orch.Enhancer().Enabled(),
		},
	})
}

// jobID extracts and validates the UUID path parameter.
func jobID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "job_id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return "", false
	}
	return id, true
}

// clientIP resolves the rate-limit key. Behind a trusted proxy the first
// X-Forwarded-For hop wins; otherwise the direct peer address.
func (s *Server) clientIP(r *http.Request) string {
	if s.cfg.Server.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			return strings.TrimSpace(strings.Split(fwd, ",")[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("durationMs", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.Server.CORSOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
