package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"pixshare/pkg/grant"
	"pixshare/pkg/library"
	"pixshare/pkg/resource"
)

const invalidLinkMsg = "Invalid or expired link"

type ShareHandler struct {
	Store  Store
	Logger *slog.Logger
}

func NewShareHandler(store Store, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{Store: store, Logger: logger}
}

func (h *ShareHandler) internal(w http.ResponseWriter, action string, err error) {
	h.Logger.Error(action, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// Create issues a share link for an album, photo or event the caller owns.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	kind, err := grant.ParseKind(mux.Vars(r)[muxVarKind])
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown share kind")
		return
	}
	targetID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || targetID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		CanComment bool `json:"can_comment"`
	}
	if ok := decodeJSONBody(w, r, &req); !ok {
		return
	}

	s, err := h.Store.CreateShare(r.Context(), actor.UserID, kind, targetID, req.CanComment)
	if errors.Is(err, library.ErrNotFound) {
		name := string(kind)
		writeError(w, http.StatusNotFound, strings.ToUpper(name[:1])+name[1:]+" not found")
		return
	}
	if err != nil {
		h.internal(w, "create share", err)
		return
	}

	if ok := writeJSON(w, h.Logger, http.StatusCreated, map[string]any{"share": resource.Share{
		ID:         s.ID,
		Token:      s.Token,
		URL:        "/api/s/" + url.PathEscape(s.Token) + "/" + string(kind),
		CanComment: s.CanComment,
	}}); ok {
		h.Logger.Info("share created", "user", actor.UserID, "kind", kind, "target", targetID)
	}
}

func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	shareID, ok := pathID(w, r, muxVarShareID)
	if !ok {
		return
	}

	err := h.Store.RevokeShare(r.Context(), actor.UserID, shareID)
	switch {
	case errors.Is(err, library.ErrNotFound):
		writeError(w, http.StatusNotFound, "Share not found")
	case errors.Is(err, library.ErrForbidden):
		writeError(w, http.StatusForbidden, "Not authorized")
	case err != nil:
		h.internal(w, "revoke share", err)
	default:
		writeJSON(w, h.Logger, http.StatusOK, map[string]string{"msg": "Share revoked"})
	}
}

// Open is the public view of a share link. A wrong token and a token for
// another kind answer alike.
func (h *ShareHandler) Open(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := grant.Kind(vars[muxVarKind])

	s, err := h.Store.ShareByToken(r.Context(), vars[muxVarToken])
	if errors.Is(err, library.ErrNotFound) || (err == nil && s.Kind() != kind) {
		writeError(w, http.StatusNotFound, invalidLinkMsg)
		return
	}
	if err != nil {
		h.internal(w, "open share", err)
		return
	}

	body := map[string]any{"can_comment": s.CanComment}
	switch kind {
	case grant.KindAlbum:
		err = h.openAlbum(r, s, body)
	case grant.KindPhoto:
		err = h.openPhoto(r, s, body)
	case grant.KindEvent:
		err = h.openEvent(r, s, body)
	}
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, invalidLinkMsg)
		return
	}
	if err != nil {
		h.internal(w, "open share", err)
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, body)
}

func (h *ShareHandler) openAlbum(r *http.Request, s *library.Share, body map[string]any) error {
	album, err := h.Store.AlbumByID(r.Context(), s.AlbumID)
	if err != nil {
		return err
	}
	photos, err := h.Store.Photos(r.Context(), s.AlbumID)
	if err != nil {
		return err
	}
	body["album"] = resource.Album{ID: album.ID, Name: album.Name}
	body["photos"] = photos
	return nil
}

func (h *ShareHandler) openPhoto(r *http.Request, s *library.Share, body map[string]any) error {
	p, err := h.Store.Photo(r.Context(), s.PhotoID)
	if err != nil {
		return err
	}
	body["photo"] = p.Photo
	return nil
}

func (h *ShareHandler) openEvent(r *http.Request, s *library.Share, body map[string]any) error {
	event, _, err := h.Store.EventByID(r.Context(), s.EventID)
	if err != nil {
		return err
	}
	albums, err := h.Store.EventAlbums(r.Context(), s.EventID)
	if err != nil {
		return err
	}
	photos, err := h.Store.EventPhotos(r.Context(), s.EventID)
	if err != nil {
		return err
	}
	body["event"] = resource.Event{ID: event.ID, Name: event.Name, Description: event.Description, Date: event.Date}
	body["albums"] = albums
	body["photos"] = photos
	return nil
}
