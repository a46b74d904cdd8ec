package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"pixshare/pkg/middleware"
)

const (
	muxVarAlbumID   = "album_id"
	muxVarPhotoID   = "photo_id"
	muxVarEventID   = "event_id"
	muxVarShareID   = "share_id"
	muxVarCommentID = "comment_id"
	muxVarKind      = "kind"
	muxVarToken     = "token"
	muxVarFilepath  = "filepath"
)

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) bool {
	resp, err := json.Marshal(data)
	if err != nil {
		logger.Error("Failed to serialize JSON response", "error", err)
		writeError(w, http.StatusInternalServerError, "failed json marshal")
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(resp); err != nil {
		logger.Error("Failed to write response to client", "error", err)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"msg": msg}); err != nil {
		return
	}
}

// decodeJSONBody reads an optional JSON body. An empty body leaves req as is.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, req any) bool {
	defer r.Body.Close()

	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeError(w, http.StatusBadRequest, "invalid Content-Type")
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+strings.ReplaceAll(name, "_", " "))
		return 0, false
	}
	return id, true
}

// currentUser returns the signed-in user's id, answering 401 when the
// request carries none.
func currentUser(w http.ResponseWriter, r *http.Request) (*middleware.Actor, bool) {
	actor := middleware.ActorFrom(r.Context())
	if actor.UserID == "" {
		writeError(w, http.StatusUnauthorized, "Missing Authorization Header")
		return nil, false
	}
	return actor, true
}
