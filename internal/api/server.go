package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/docsect/internal/config"
	"github.com/dgallion1/docsect/internal/embedding"
	"github.com/dgallion1/docsect/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the analyzer over HTTP. It implements http.Handler.
type Server struct {
	http.Handler

	orch    *pipeline.Orchestrator
	stats   *embedding.LatencyStats
	log     *slog.Logger
	cfg     config.Config
	started time.Time
}

// NewServer wires the routes. stats may be nil, in which case the
// embedding stats endpoint answers 503.
func NewServer(orch *pipeline.Orchestrator, stats *embedding.LatencyStats, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{orch: orch, stats: stats, log: log, cfg: cfg, started: time.Now()}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey))
		r.Post("/analyze", s.handleAnalyze)
		r.Route("/analyze/{jobID}", func(r chi.Router) {
			r.Get("/status", s.handleAnalyzeStatus)
			r.Get("/result", s.handleAnalyzeResult)
		})
		r.Post("/outline", s.handleOutline)
		r.Get("/stats/embedding", s.handleEmbeddingStats)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"queue_depth":    s.orch.QueueDepth(),
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
