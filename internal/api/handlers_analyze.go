package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsect/internal/parser"
	"github.com/dgallion1/docsect/internal/pipeline"
	"github.com/dgallion1/docsect/internal/report"
	"github.com/go-chi/chi/v5"
)

// maxFilesPerRequest bounds the request body to MaxUploadBytes per file.
const maxFilesPerRequest = 10

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*maxFilesPerRequest+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) > maxFilesPerRequest {
		jsonError(w, fmt.Sprintf("at most %d files per request", maxFilesPerRequest), http.StatusBadRequest)
		return
	}

	in := report.Input{
		Persona:     report.Persona{Role: strings.TrimSpace(r.FormValue("persona"))},
		JobToBeDone: report.JobToBeDone{Task: strings.TrimSpace(r.FormValue("task"))},
	}
	sources := make([]pipeline.Source, 0, len(files))
	for _, fh := range files {
		src, err := s.readUpload(fh)
		if err != nil {
			jsonError(w, err.Error(), uploadErrorStatus(err))
			return
		}
		sources = append(sources, src)
		in.Documents = append(in.Documents, report.InputDocument{Filename: src.Filename})
	}
	if err := in.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(in, sources)
	if err := s.orch.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("analysis queued", "job_id", job.ID, "documents", len(sources))

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     job.ID,
		"status":     pipeline.StatusQueued,
		"poll_url":   fmt.Sprintf("/api/analyze/%s/status", job.ID),
		"result_url": fmt.Sprintf("/api/analyze/%s/result", job.ID),
	})
}

func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orch.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleAnalyzeResult(w http.ResponseWriter, r *http.Request) {
	job := s.orch.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	out, status, msg := job.Result()
	switch status {
	case pipeline.StatusCompleted:
		writeJSON(w, http.StatusOK, out)
	case pipeline.StatusNoResults:
		writeJSON(w, http.StatusOK, map[string]any{"status": status, "message": msg})
	case pipeline.StatusFailed:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": status, "error": msg})
	default:
		writeJSON(w, http.StatusConflict, map[string]any{"status": status, "error": "job is still running"})
	}
}

var (
	errUnsupportedUpload = errors.New("unsupported file type")
	errUploadTooLarge    = errors.New("file exceeds max size")
)

// readUpload reads one multipart file, rejecting unsupported extensions and
// files over MaxUploadBytes.
func (s *Server) readUpload(fh *multipart.FileHeader) (pipeline.Source, error) {
	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupportedExtension(filename) {
		return pipeline.Source{}, fmt.Errorf("%w: %q (supported: %s)", errUnsupportedUpload, filepath.Ext(filename), strings.Join(parser.Extensions(), ", "))
	}
	f, err := fh.Open()
	if err != nil {
		return pipeline.Source{}, fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return pipeline.Source{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return pipeline.Source{}, fmt.Errorf("%w (%d bytes): %s", errUploadTooLarge, s.cfg.MaxUploadBytes, filename)
	}
	return pipeline.Source{Filename: filename, Data: data}, nil
}

func uploadErrorStatus(err error) int {
	switch {
	case errors.Is(err, errUnsupportedUpload):
		return http.StatusBadRequest
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func sanitizeFilename(name string) string {
	// Multipart clients may send Windows paths.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
