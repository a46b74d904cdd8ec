package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"pixshare/pkg/library"
	"pixshare/pkg/middleware"
)

// MediaHandler serves uploaded files to their owner or to holders of a share
// link that reaches the photo. Anything else is a plain 404.
type MediaHandler struct {
	Store     Store
	UploadDir string
	Logger    *slog.Logger
}

func NewMediaHandler(store Store, uploadDir string, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{Store: store, UploadDir: uploadDir, Logger: logger}
}

func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)[muxVarFilepath]
	actor := middleware.ActorFrom(r.Context())

	p, err := h.Store.PhotoByPath(r.Context(), rel)
	if errors.Is(err, library.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.Logger.Error("media", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	allowed := actor.UserID != "" && actor.UserID == p.UserID
	if !allowed && actor.Share != nil {
		if allowed, err = h.Store.Covers(r.Context(), actor.Share, p); err != nil {
			h.Logger.Error("media", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}
	if !allowed {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeFile(w, r, filepath.Join(h.UploadDir, filepath.FromSlash(p.Filepath)))
}
