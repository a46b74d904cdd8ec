package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"pixshare/pkg/claims"
	"pixshare/pkg/user"
)

const minPasswordLen = 6

type RegisterForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Handler struct {
	Service user.ServiceInterface
	Issuer  *claims.Issuer
	Logger  *slog.Logger
}

func NewUserHandler(service user.ServiceInterface, issuer *claims.Issuer, logger *slog.Logger) *Handler {
	return &Handler{
		Service: service,
		Issuer:  issuer,
		Logger:  logger,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterForm
	if ok := decodeJSONBody(w, r, &req); !ok {
		return
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Name, email, and password are required")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	u, sessionID, err := h.Service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrExists) {
			writeError(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.Logger.Error("register", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, ok := h.sign(w, u, sessionID)
	if !ok {
		return
	}
	if ok := writeJSON(w, h.Logger, http.StatusCreated, map[string]any{
		"msg":   "User registered",
		"token": token,
		"user":  u,
	}); ok {
		h.Logger.Info("register", "user", u.ID)
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginForm
	if ok := decodeJSONBody(w, r, &req); !ok {
		return
	}

	u, sessionID, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, user.ErrBadCredentials) {
			h.Logger.Error("login", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		h.Logger.Warn("login", "error", "unauthorized")
		return
	}

	token, ok := h.sign(w, u, sessionID)
	if !ok {
		return
	}
	if ok := writeJSON(w, h.Logger, http.StatusOK, map[string]any{"token": token}); ok {
		h.Logger.Info("login", "user", u.ID)
	}
}

// Logout revokes the session behind the bearer token. Later requests with
// the same token get 401.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.Service.Logout(r.Context(), actor.SessionID); err != nil {
		h.Logger.Error("logout", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if ok := writeJSON(w, h.Logger, http.StatusOK, map[string]string{"msg": "Logged out"}); ok {
		h.Logger.Info("logout", "user", actor.UserID)
	}
}

func (h *Handler) sign(w http.ResponseWriter, u *user.User, sessionID string) (string, bool) {
	token, err := h.Issuer.Sign(u.ID, u.Email, sessionID)
	if err != nil {
		h.Logger.Error("token signing", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return "", false
	}
	return token, true
}
