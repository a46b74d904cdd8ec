package handlers

import (
	"errors"
	"net/http"
	"strings"

	"pixshare/pkg/library"
)

func (h *LibraryHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	events, err := h.Store.Events(r.Context(), actor.UserID)
	if err != nil {
		h.internal(w, "events", err)
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]any{"events": events})
}

func (h *LibraryHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, muxVarEventID)
	if !ok {
		return
	}
	event, err := h.Store.Event(r.Context(), actor.UserID, eventID)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		h.internal(w, "event", err)
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, event)
}

func (h *LibraryHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if ok := decodeJSONBody(w, r, &req); !ok {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Event name is required")
		return
	}

	event, err := h.Store.CreateEvent(r.Context(), actor.UserID, name, req.Description)
	if err != nil {
		h.internal(w, "create event", err)
		return
	}
	if ok := writeJSON(w, h.Logger, http.StatusCreated, map[string]any{"event": event}); ok {
		h.Logger.Info("event created", "user", actor.UserID, "event", event.ID)
	}
}

// UpdateEvent edits an event's name and description. Fields left out of the
// body keep their values.
func (h *LibraryHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, muxVarEventID)
	if !ok {
		return
	}
	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if ok := decodeJSONBody(w, r, &req); !ok {
		return
	}

	event, err := h.Store.UpdateEvent(r.Context(), actor.UserID, eventID, strings.TrimSpace(req.Name), req.Description)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		h.internal(w, "update event", err)
		return
	}
	if ok := writeJSON(w, h.Logger, http.StatusOK, map[string]any{"event": event}); ok {
		h.Logger.Info("event updated", "user", actor.UserID, "event", event.ID)
	}
}

func (h *LibraryHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, muxVarEventID)
	if !ok {
		return
	}
	err := h.Store.DeleteEvent(r.Context(), actor.UserID, eventID)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		h.internal(w, "delete event", err)
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]string{"msg": "Event deleted"})
}

// AttachAlbums adds albums to an event. The caller must be signed in and own
// the albums; the event is reached either as its owner or through one of its
// share links.
func (h *LibraryHandler) AttachAlbums(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, muxVarEventID)
	if !ok {
		return
	}
	var req struct {
		AlbumIDs []int64 `json:"album_ids"`
	}
	if ok := decodeJSONBody(w, r, &req); !ok {
		return
	}

	_, owner, err := h.Store.EventByID(r.Context(), eventID)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		h.internal(w, "attach albums", err)
		return
	}

	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	viaLink := actor.Share != nil && actor.Share.EventID == eventID
	if owner != actor.UserID && !viaLink {
		writeError(w, http.StatusForbidden, "Not authorized")
		return
	}

	ids := make([]int64, 0, len(req.AlbumIDs))
	for _, id := range req.AlbumIDs {
		if id > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "album_ids is required")
		return
	}
	owns, err := h.Store.OwnsAlbums(r.Context(), actor.UserID, ids)
	if err != nil {
		h.internal(w, "attach albums", err)
		return
	}
	if !owns {
		writeError(w, http.StatusForbidden, "You can only add your own albums")
		return
	}

	if err := h.Store.AttachAlbums(r.Context(), eventID, ids); err != nil {
		h.internal(w, "attach albums", err)
		return
	}
	albums, err := h.Store.EventAlbums(r.Context(), eventID)
	if err != nil {
		h.internal(w, "attach albums", err)
		return
	}
	if ok := writeJSON(w, h.Logger, http.StatusOK, map[string]any{"msg": "Albums added", "albums": albums}); ok {
		h.Logger.Info("albums attached", "user", actor.UserID, "event", eventID, "via_link", viaLink)
	}
}

// RemoveAlbum detaches an album. Only the event owner may.
func (h *LibraryHandler) RemoveAlbum(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, muxVarEventID)
	if !ok {
		return
	}
	albumID, ok := pathID(w, r, muxVarAlbumID)
	if !ok {
		return
	}

	if _, err := h.Store.Event(r.Context(), actor.UserID, eventID); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Event not found")
			return
		}
		h.internal(w, "remove album", err)
		return
	}
	err := h.Store.DetachAlbum(r.Context(), eventID, albumID)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Album is not part of this event")
		return
	}
	if err != nil {
		h.internal(w, "remove album", err)
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]string{"msg": "Album removed"})
}

// RotateLink issues a new public link for the event.
func (h *LibraryHandler) RotateLink(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, muxVarEventID)
	if !ok {
		return
	}
	var req struct {
		RevokeOld bool `json:"revoke_old"`
	}
	if ok := decodeJSONBody(w, r, &req); !ok {
		return
	}

	s, err := h.Store.RotateEventLink(r.Context(), actor.UserID, eventID, req.RevokeOld)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		h.internal(w, "rotate link", err)
		return
	}
	if ok := writeJSON(w, h.Logger, http.StatusCreated, map[string]any{
		"shareId": s.Token,
		"share":   map[string]any{"id": s.ID, "token": s.Token},
	}); ok {
		h.Logger.Info("event link rotated", "user", actor.UserID, "event", eventID, "revoke_old", req.RevokeOld)
	}
}
