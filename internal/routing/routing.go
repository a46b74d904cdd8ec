package routing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"pixshare/pkg/claims"
	"pixshare/pkg/comment"
	"pixshare/pkg/handlers"
	"pixshare/pkg/library"
	"pixshare/pkg/middleware"
	"pixshare/pkg/user"
)

const (
	shareKinds = "album|photo|event"
	idPattern  = "[0-9]+"
)

// Deps is everything the stub's routes are built from.
type Deps struct {
	Users          user.Repository
	Sessions       user.Sessions
	Library        *library.SQLRepo
	Comments       comment.Repository
	Issuer         *claims.Issuer
	UploadDir      string
	StorageLimitGB float64
	Logger         *slog.Logger
}

// NewRouter builds the stub's full route table: the REST API under /api and
// uploaded media under /uploads.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Trace)
	r.Use(middleware.Panic(d.Logger))
	r.Use(middleware.CheckAuth(&middleware.Authenticator{
		Issuer:   d.Issuer,
		Sessions: d.Sessions,
		Shares:   d.Library,
		Logger:   d.Logger,
	}))

	InitRoutes(r.PathPrefix("/api").Subrouter(), d)
	ServeMedia(r, d)
	ServeFallback(r, d.Logger)
	return r
}

func InitRoutes(api *mux.Router, d Deps) {
	userService := user.NewService(d.Users, d.Sessions, d.Issuer.TTL)
	userHandler := handlers.NewUserHandler(userService, d.Issuer, d.Logger)
	libraryHandler := handlers.NewLibraryHandler(d.Library, d.Comments, d.UploadDir, d.StorageLimitGB, d.Logger)
	shareHandler := handlers.NewShareHandler(d.Library, d.Logger)
	commentHandler := handlers.NewCommentHandler(d.Library, d.Comments, d.Users, d.Logger)

	/* auth routers */
	authRouter := api.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", userHandler.Register).Methods("POST").Name("register")
	authRouter.HandleFunc("/login", userHandler.Login).Methods("POST").Name("login")
	authRouter.HandleFunc("/logout", userHandler.Logout).Methods("POST").Name("logout")

	/* account settings */
	api.HandleFunc("/account/profile", userHandler.Profile).Methods("GET")
	api.HandleFunc("/account/profile", userHandler.UpdateProfile).Methods("PUT")
	api.HandleFunc("/account/password", userHandler.ChangePassword).Methods("PUT")

	/* albums and photos */
	api.HandleFunc("/albums", libraryHandler.GetAlbums).Methods("GET")
	api.HandleFunc("/albums", libraryHandler.CreateAlbum).Methods("POST")
	api.HandleFunc("/albums/{album_id:"+idPattern+"}", libraryHandler.GetAlbum).Methods("GET")
	api.HandleFunc("/albums/{album_id:"+idPattern+"}", libraryHandler.DeleteAlbum).Methods("DELETE")
	api.HandleFunc("/albums/{album_id:"+idPattern+"}/photos", libraryHandler.GetPhotos).Methods("GET")
	api.HandleFunc("/albums/{album_id:"+idPattern+"}/photos", libraryHandler.UploadPhotos).Methods("POST")
	api.HandleFunc("/photos/{photo_id:"+idPattern+"}", libraryHandler.DeletePhoto).Methods("DELETE")

	/* comments */
	api.HandleFunc("/photos/{photo_id:"+idPattern+"}/comments", commentHandler.List).Methods("GET")
	api.HandleFunc("/photos/{photo_id:"+idPattern+"}/comments", commentHandler.Create).Methods("POST")
	api.HandleFunc("/photos/{photo_id:"+idPattern+"}/comments/{comment_id:"+idPattern+"}", commentHandler.Delete).Methods("DELETE")

	/* events */
	api.HandleFunc("/events", libraryHandler.GetEvents).Methods("GET")
	api.HandleFunc("/events", libraryHandler.CreateEvent).Methods("POST")
	api.HandleFunc("/events/{event_id:"+idPattern+"}", libraryHandler.GetEvent).Methods("GET")
	api.HandleFunc("/events/{event_id:"+idPattern+"}", libraryHandler.UpdateEvent).Methods("PUT")
	api.HandleFunc("/events/{event_id:"+idPattern+"}", libraryHandler.DeleteEvent).Methods("DELETE")
	api.HandleFunc("/events/{event_id:"+idPattern+"}/albums", libraryHandler.AttachAlbums).Methods("POST")
	api.HandleFunc("/events/{event_id:"+idPattern+"}/albums/{album_id:"+idPattern+"}", libraryHandler.RemoveAlbum).Methods("DELETE")
	api.HandleFunc("/events/{event_id:"+idPattern+"}/rotate-link", libraryHandler.RotateLink).Methods("POST")

	/* share links */
	api.HandleFunc("/share/{kind:(?:"+shareKinds+")}/{id:"+idPattern+"}", shareHandler.Create).Methods("POST")
	api.HandleFunc("/share/{share_id:"+idPattern+"}", shareHandler.Revoke).Methods("DELETE")
	api.HandleFunc("/s/{token}/{kind:(?:"+shareKinds+")}", shareHandler.Open).Methods("GET")

	/* dashboard */
	api.HandleFunc("/dashboard/storage", libraryHandler.StorageUsage).Methods("GET")
	api.HandleFunc("/dashboard/recent-albums", libraryHandler.RecentAlbums).Methods("GET")
}

func ServeMedia(r *mux.Router, d Deps) {
	media := handlers.NewMediaHandler(d.Library, d.UploadDir, d.Logger)
	r.HandleFunc("/uploads/{filepath:.+}", media.Serve).Methods("GET")
}

func ServeFallback(r *mux.Router, logger *slog.Logger) {
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("no route", slog.String("method", r.Method), slog.String("path", r.URL.Path))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		if _, err := w.Write([]byte(`{"msg":"Not found"}`)); err != nil {
			logger.Error("failed to write fallback JSON", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
	})
}

// StartServer serves until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("the server is running", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
