package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// HandleMedia serves covers stored in the media library.
func (h *Handler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		h.writeError(w, "Media library disabled", http.StatusNotFound)
		return
	}

	name := chi.URLParam(r, "name")

	// Prevent directory traversal attacks
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		h.writeError(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.media.Dir(), name))
}
