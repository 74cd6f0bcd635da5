package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/docsect/internal/doctree"
	"github.com/dgallion1/docsect/internal/parser"
)

// handleOutline parses one uploaded file and returns its title and headings.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	src, err := s.readUpload(files[0])
	if err != nil {
		jsonError(w, err.Error(), uploadErrorStatus(err))
		return
	}

	ol, err := s.orch.Analyzer().Outline(src.Data, src.Filename)
	switch {
	case errors.Is(err, parser.ErrUnsupported):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.log.Warn("outline failed", "filename", src.Filename, "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if ol.Entries == nil {
		ol.Entries = []doctree.OutlineEntry{}
	}
	writeJSON(w, http.StatusOK, ol)
}
