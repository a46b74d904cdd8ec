package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"pixshare/pkg/claims"
	"pixshare/pkg/library"
	"pixshare/pkg/user"
)

// Policy says who may call a route.
type Policy int

const (
	// UserOnly needs a live bearer token. It is the default for routes
	// missing from the policy table.
	UserOnly Policy = iota
	Public
	// UserOrShare accepts a share token (?t= or X-Share-Token) or a bearer
	// token. A share that resolves wins; the bearer is then optional.
	UserOrShare
)

const ShareTokenHeader = "X-Share-Token"

var policies = map[string]map[string]Policy{
	"/api/auth/register":                          {http.MethodPost: Public},
	"/api/auth/login":                             {http.MethodPost: Public},
	"/api/s/{token}/{kind:(?:album|photo|event)}": {http.MethodGet: Public},
	"/api/photos/{photo_id:[0-9]+}/comments": {
		http.MethodGet:  UserOrShare,
		http.MethodPost: UserOrShare,
	},
	"/api/events/{event_id:[0-9]+}/albums": {http.MethodPost: UserOrShare},
	"/uploads/{filepath:.+}":               {http.MethodGet: UserOrShare},
}

// Actor is whoever the request acts for. UserID is empty for guests; Share
// is nil unless a share token resolved.
type Actor struct {
	UserID    string
	Email     string
	SessionID string
	Share     *library.Share
}

func (a *Actor) Guest() bool {
	return a.UserID == "" && a.Share != nil
}

// ActorFrom never returns nil.
func ActorFrom(ctx context.Context) *Actor {
	if a, ok := ctx.Value(claims.ActorContextKey).(*Actor); ok && a != nil {
		return a
	}
	return &Actor{}
}

func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, claims.ActorContextKey, a)
}

// ShareFinder looks share links up by token.
type ShareFinder interface {
	ShareByToken(ctx context.Context, token string) (*library.Share, error)
}

type Authenticator struct {
	Issuer   *claims.Issuer
	Sessions user.Sessions
	Shares   ShareFinder
	Logger   *slog.Logger
}

type authError struct {
	status int
	msg    string
}

func (a *Authenticator) bearer(ctx context.Context, header string) (*claims.Claims, *authError) {
	if header == "" {
		return nil, &authError{http.StatusUnauthorized, "Missing Authorization Header"}
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, &authError{http.StatusUnprocessableEntity, "Bad Authorization header. Expected 'Authorization: Bearer <JWT>'"}
	}

	c, err := a.Issuer.Verify(token)
	if err != nil {
		if errors.Is(err, claims.ErrMalformed) {
			return nil, &authError{http.StatusUnprocessableEntity, "Not enough segments"}
		}
		return nil, &authError{http.StatusUnauthorized, "Token is invalid or has expired"}
	}

	live, err := a.Sessions.IsValid(ctx, c.Id)
	if err != nil {
		a.Logger.Error("session lookup", "error", err)
		return nil, &authError{http.StatusInternalServerError, "Internal server error"}
	}
	if !live {
		return nil, &authError{http.StatusUnauthorized, "Token has been revoked"}
	}
	return c, nil
}

func shareToken(r *http.Request) string {
	if t := r.URL.Query().Get("t"); t != "" {
		return t
	}
	return r.Header.Get(ShareTokenHeader)
}

// CheckAuth resolves the request's Actor according to the route's policy.
func CheckAuth(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := mux.CurrentRoute(r)
			if route == nil {
				writeMsg(w, http.StatusNotFound, "Not found")
				return
			}
			template, err := route.GetPathTemplate()
			if err != nil {
				writeMsg(w, http.StatusNotFound, "Not found")
				return
			}

			policy := policies[template][r.Method]
			if policy == Public {
				next.ServeHTTP(w, r)
				return
			}

			actor := &Actor{}
			if policy == UserOrShare {
				if tok := shareToken(r); tok != "" {
					s, err := a.Shares.ShareByToken(r.Context(), tok)
					switch {
					case err == nil:
						actor.Share = s
					case !errors.Is(err, library.ErrNotFound):
						a.Logger.Error("share lookup", "error", err)
						writeMsg(w, http.StatusInternalServerError, "Internal server error")
						return
					}
				}
			}

			c, authErr := a.bearer(r.Context(), r.Header.Get("Authorization"))
			switch {
			case authErr == nil:
				actor.UserID, actor.Email, actor.SessionID = c.User.ID, c.User.Email, c.Id
			case actor.Share != nil:
			case policy == UserOrShare && authErr.status == http.StatusUnauthorized && r.Header.Get("Authorization") == "":
				writeMsg(w, http.StatusUnauthorized, `Missing JWT or share token (provide header "Authorization: Bearer <token>" OR "?t=<shareToken>")`)
				return
			default:
				a.Logger.Debug("auth rejected", "path", template, "status", authErr.status, "msg", authErr.msg)
				writeMsg(w, authErr.status, authErr.msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"msg": msg})
}
