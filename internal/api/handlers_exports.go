package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-chi/chi/v5"

	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/materialize"
	"github.com/Code-Triarii/notion-exporter-to-mkdocs/internal/pipeline"
)

const maxRequestBytes = 1 << 20

var pageIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{12}$`)

type exportRequest struct {
	PageID string `json:"page_id"`
	Nav    bool   `json:"nav"`
}

func (r exportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PageID,
			validation.Required,
			validation.Match(pageIDPattern).Error("must be a page id (32 hex digits, hyphens optional)"),
		),
	)
}

func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.PageID = strings.TrimSpace(req.PageID)
	if err := req.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(req.PageID, req.Nav)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"page_id":  job.PageID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/exports/%s", job.ID),
	})
}

func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := materialize.Tree(s.fs, s.cfg.OutputsDir)
	if err != nil {
		s.log.Error("list exported files", "error", err)
		jsonError(w, "output directory unavailable", http.StatusNotFound)
		return
	}
	if files == nil {
		files = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"outputs_dir": s.cfg.OutputsDir,
		"files":       files,
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
