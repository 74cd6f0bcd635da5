package api

import "net/http"

func (s *Server) handleEmbeddingStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "embedding stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": s.cfg.Embedding.Provider,
		"model":    s.cfg.Embedding.Model,
		"stats":    s.stats.Snapshot(),
	})
}
