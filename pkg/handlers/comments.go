package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pixshare/pkg/comment"
	"pixshare/pkg/library"
	"pixshare/pkg/middleware"
	"pixshare/pkg/resource"
	"pixshare/pkg/user"
)

const (
	guestAuthor   = "Guest"
	unknownAuthor = "Unknown"
)

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
}

type CommentHandler struct {
	Store    Store
	Comments comment.Repository
	Users    UserFinder
	Logger   *slog.Logger
	Now      func() time.Time
}

func NewCommentHandler(store Store, comments comment.Repository, users UserFinder, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		Store:    store,
		Comments: comments,
		Users:    users,
		Logger:   logger,
		Now:      time.Now,
	}
}

func (h *CommentHandler) internal(w http.ResponseWriter, action string, err error) {
	h.Logger.Error(action, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// photo loads the photo and, for guests, checks that their link reaches it.
func (h *CommentHandler) photo(w http.ResponseWriter, r *http.Request, actor *middleware.Actor) (*library.Photo, bool) {
	photoID, ok := pathID(w, r, muxVarPhotoID)
	if !ok {
		return nil, false
	}
	p, err := h.Store.Photo(r.Context(), photoID)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Photo not found")
		return nil, false
	}
	if err != nil {
		h.internal(w, "comments", err)
		return nil, false
	}

	if actor.Guest() {
		covers, err := h.Store.Covers(r.Context(), actor.Share, p)
		if err != nil {
			h.internal(w, "comments", err)
			return nil, false
		}
		if !covers {
			writeError(w, http.StatusForbidden, "This link is not valid for this resource.")
			return nil, false
		}
	}
	return p, true
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	p, ok := h.photo(w, r, actor)
	if !ok {
		return
	}

	comments, err := h.Comments.ByPhoto(r.Context(), p.ID)
	if err != nil {
		h.internal(w, "comments", err)
		return
	}
	out := make([]resource.Comment, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.Resource())
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]any{"comments": out})
}

// Create posts a comment as the signed-in user or, with a commentable share
// link, as a guest.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())

	var req struct {
		Content string `json:"content"`
	}
	if ok := decodeJSONBody(w, r, &req); !ok {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "Content is required")
		return
	}

	p, ok := h.photo(w, r, actor)
	if !ok {
		return
	}
	if actor.Guest() && !actor.Share.CanComment {
		writeError(w, http.StatusForbidden, "Sharing does not allow can comment.")
		return
	}

	c := &comment.Comment{
		PhotoID: p.ID,
		UserID:  actor.UserID,
		Author:  h.author(r.Context(), actor),
		Content: content,
		Created: h.Now().UTC(),
	}
	if err := h.Comments.Add(r.Context(), c); err != nil {
		h.internal(w, "add comment", err)
		return
	}
	if ok := writeJSON(w, h.Logger, http.StatusCreated, map[string]any{"comment": c.Resource()}); ok {
		h.Logger.Info("comment added", "photo", p.ID, "guest", actor.Guest())
	}
}

func (h *CommentHandler) author(ctx context.Context, actor *middleware.Actor) string {
	if actor.UserID == "" {
		return guestAuthor
	}
	u, err := h.Users.FindByID(ctx, actor.UserID)
	if err != nil {
		h.Logger.Warn("comment author", "user", actor.UserID, "error", err)
		return unknownAuthor
	}
	return u.Name
}

// Delete removes a comment. Only its author may.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	photoID, ok := pathID(w, r, muxVarPhotoID)
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, muxVarCommentID)
	if !ok {
		return
	}

	err := h.Comments.Delete(r.Context(), photoID, commentID, actor.UserID)
	switch {
	case errors.Is(err, comment.ErrNotFound):
		writeError(w, http.StatusNotFound, "Comment not found")
	case errors.Is(err, comment.ErrForbidden):
		writeError(w, http.StatusForbidden, "Not authorized to delete this comment")
	case err != nil:
		h.internal(w, "delete comment", err)
	default:
		writeJSON(w, h.Logger, http.StatusOK, map[string]any{"msg": "Comment deleted", "id": commentID})
	}
}
