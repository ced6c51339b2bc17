package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/afero"

	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/config"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/pipeline"
)

// Server is the HTTP API server for triggering and tracking exports.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	fs           afero.Fs
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. fs is where exports are
// written; it backs the file listing endpoint.
func NewServer(orch *pipeline.Orchestrator, fs afero.Fs, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		fs:           fs,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.ExporterAPIKey, s.log))

		r.Post("/api/exports", s.handleCreateExport)
		r.Get("/api/exports/{jobID}", s.handleExportStatus)
		r.Get("/api/files", s.handleListFiles)
		r.Get("/api/stats/queue", s.handleQueueStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
