package handlers

import (
	"errors"
	"net/http"
	"strings"

	"pixshare/pkg/user"
)

type ProfileForm struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type PasswordForm struct {
	Current string `json:"current"`
	New     string `json:"new"`
}

// Accounts carry no plan column; every owner is on the free tier.
const subscription = "Free"

func profileBody(u *user.User) map[string]string {
	return map[string]string{"name": u.Name, "email": u.Email, "subscription": subscription}
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	u, err := h.Service.Profile(r.Context(), actor.UserID)
	if err != nil {
		h.accountError(w, "profile", err)
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, profileBody(u))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req ProfileForm
	if ok := decodeJSONBody(w, r, &req); !ok {
		return
	}
	email := strings.TrimSpace(req.Email)
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	}

	u, err := h.Service.UpdateProfile(r.Context(), actor.UserID, req.Name, email)
	if err != nil {
		if errors.Is(err, user.ErrExists) {
			writeError(w, http.StatusConflict, "Email already in use")
			return
		}
		h.accountError(w, "update profile", err)
		return
	}
	if ok := writeJSON(w, h.Logger, http.StatusOK, map[string]any{
		"msg":     "Profile updated",
		"profile": profileBody(u),
	}); ok {
		h.Logger.Info("update profile", "user", u.ID)
	}
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req PasswordForm
	if ok := decodeJSONBody(w, r, &req); !ok {
		return
	}
	current, next := strings.TrimSpace(req.Current), strings.TrimSpace(req.New)
	switch {
	case current == "" || next == "":
		writeError(w, http.StatusBadRequest, "Current and new password are required")
		return
	case len(next) < minPasswordLen:
		writeError(w, http.StatusBadRequest, "New password must be at least 6 characters")
		return
	}

	if err := h.Service.ChangePassword(r.Context(), actor.UserID, current, next); err != nil {
		if errors.Is(err, user.ErrWrongPassword) {
			writeError(w, http.StatusBadRequest, "Current password is incorrect")
			return
		}
		h.accountError(w, "change password", err)
		return
	}
	if ok := writeJSON(w, h.Logger, http.StatusOK, map[string]string{"msg": "Password updated"}); ok {
		h.Logger.Info("change password", "user", actor.UserID)
	}
}

func (h *Handler) accountError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, user.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	h.Logger.Error(op, "error", err.Error())
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
