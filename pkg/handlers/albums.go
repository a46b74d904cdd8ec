package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"pixshare/pkg/comment"
	"pixshare/pkg/generator"
	"pixshare/pkg/library"
	"pixshare/pkg/resource"
)

const (
	recentAlbumsLimit = 3
	maxUploadMemory   = 32 << 20
	bytesPerGB        = 1 << 30
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type LibraryHandler struct {
	Store          Store
	Comments       comment.Repository
	UploadDir      string
	StorageLimitGB float64
	Logger         *slog.Logger
}

func NewLibraryHandler(store Store, comments comment.Repository, uploadDir string, limitGB float64, logger *slog.Logger) *LibraryHandler {
	return &LibraryHandler{
		Store:          store,
		Comments:       comments,
		UploadDir:      uploadDir,
		StorageLimitGB: limitGB,
		Logger:         logger,
	}
}

func (h *LibraryHandler) internal(w http.ResponseWriter, action string, err error) {
	h.Logger.Error(action, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func (h *LibraryHandler) GetAlbums(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	albums, err := h.Store.Albums(r.Context(), actor.UserID)
	if err != nil {
		h.internal(w, "albums", err)
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]any{"albums": albums})
}

func (h *LibraryHandler) GetAlbum(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	albumID, ok := pathID(w, r, muxVarAlbumID)
	if !ok {
		return
	}
	album, err := h.Store.Album(r.Context(), actor.UserID, albumID)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Album not found")
		return
	}
	if err != nil {
		h.internal(w, "album", err)
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, album)
}

func (h *LibraryHandler) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if ok := decodeJSONBody(w, r, &req); !ok {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Album name is required")
		return
	}

	album, err := h.Store.CreateAlbum(r.Context(), actor.UserID, name)
	if err != nil {
		h.internal(w, "create album", err)
		return
	}
	if ok := writeJSON(w, h.Logger, http.StatusCreated, map[string]any{"album": album}); ok {
		h.Logger.Info("album created", "user", actor.UserID, "album", album.ID)
	}
}

func (h *LibraryHandler) DeleteAlbum(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	albumID, ok := pathID(w, r, muxVarAlbumID)
	if !ok {
		return
	}

	photos, err := h.Store.Photos(r.Context(), albumID)
	if err != nil {
		h.internal(w, "delete album", err)
		return
	}
	paths, err := h.Store.DeleteAlbum(r.Context(), actor.UserID, albumID)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Album not found")
		return
	}
	if err != nil {
		h.internal(w, "delete album", err)
		return
	}

	for _, p := range photos {
		if err := h.Comments.DeleteByPhoto(r.Context(), p.ID); err != nil {
			h.Logger.Warn("delete album comments", "photo", p.ID, "error", err)
		}
	}
	h.removeFiles(paths...)
	writeJSON(w, h.Logger, http.StatusOK, map[string]string{"msg": "Album and all associated photos deleted"})
}

func (h *LibraryHandler) GetPhotos(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	albumID, ok := pathID(w, r, muxVarAlbumID)
	if !ok {
		return
	}
	if _, err := h.Store.Album(r.Context(), actor.UserID, albumID); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Album not found")
			return
		}
		h.internal(w, "photos", err)
		return
	}

	photos, err := h.Store.Photos(r.Context(), albumID)
	if err != nil {
		h.internal(w, "photos", err)
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]any{"photos": photos})
}

// UploadPhotos stores the files sent as "photo" or "photos" under
// photos/{user}/{album}/ in the upload directory.
func (h *LibraryHandler) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	albumID, ok := pathID(w, r, muxVarAlbumID)
	if !ok {
		return
	}
	if _, err := h.Store.Album(r.Context(), actor.UserID, albumID); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Album not found")
			return
		}
		h.internal(w, "upload", err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "No file(s) provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		files = r.MultipartForm.File["photo"]
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No file(s) provided")
		return
	}

	saved := make([]*resource.Photo, 0, len(files))
	for _, fh := range files {
		p, err := h.savePhoto(r, actor.UserID, albumID, fh)
		if err != nil {
			h.internal(w, "upload", err)
			return
		}
		saved = append(saved, p)
	}

	if ok := writeJSON(w, h.Logger, http.StatusCreated, map[string]any{"photos": saved}); ok {
		h.Logger.Info("photos uploaded", "user", actor.UserID, "album", albumID, "count", len(saved))
	}
}

func (h *LibraryHandler) savePhoto(r *http.Request, userID string, albumID int64, fh *multipart.FileHeader) (*resource.Photo, error) {
	name := unsafeFileChars.ReplaceAllString(filepath.Base(fh.Filename), "_")
	if name == "" || name == "." || name == "_" {
		name = "photo"
	}
	prefix, err := generator.RandomID(8)
	if err != nil {
		return nil, err
	}
	rel := path.Join("photos", userID, strconv.FormatInt(albumID, 10), prefix+"_"+name)

	full := filepath.Join(h.UploadDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst, err := os.Create(full)
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(full)
		return nil, fmt.Errorf("save upload: %w", err)
	}

	return h.Store.AddPhoto(r.Context(), userID, albumID, name, rel, size)
}

func (h *LibraryHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	photoID, ok := pathID(w, r, muxVarPhotoID)
	if !ok {
		return
	}

	rel, err := h.Store.DeletePhoto(r.Context(), actor.UserID, photoID)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Photo not found")
		return
	}
	if err != nil {
		h.internal(w, "delete photo", err)
		return
	}
	if err := h.Comments.DeleteByPhoto(r.Context(), photoID); err != nil {
		h.Logger.Warn("delete photo comments", "photo", photoID, "error", err)
	}
	h.removeFiles(rel)
	writeJSON(w, h.Logger, http.StatusOK, map[string]string{"msg": "Photo deleted"})
}

func (h *LibraryHandler) removeFiles(paths ...string) {
	for _, rel := range paths {
		full := filepath.Join(h.UploadDir, filepath.FromSlash(rel))
		if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
			h.Logger.Warn("remove upload", "path", rel, "error", err)
		}
	}
}

func (h *LibraryHandler) StorageUsage(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	used, err := h.Store.StorageBytes(r.Context(), actor.UserID)
	if err != nil {
		h.internal(w, "storage", err)
		return
	}
	gb, _ := strconv.ParseFloat(strconv.FormatFloat(float64(used)/bytesPerGB, 'f', 2, 64), 64)
	writeJSON(w, h.Logger, http.StatusOK, resource.StorageUsage{UsedGB: gb, LimitGB: h.StorageLimitGB})
}

func (h *LibraryHandler) RecentAlbums(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	albums, err := h.Store.RecentAlbums(r.Context(), actor.UserID, recentAlbumsLimit)
	if err != nil {
		h.internal(w, "recent albums", err)
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]any{"albums": albums})
}
