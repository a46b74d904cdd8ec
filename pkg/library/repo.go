package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pixshare/pkg/generator"
	"pixshare/pkg/grant"
	"pixshare/pkg/resource"
)

type SQLRepo struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewSQLRepo(db *sql.DB) *SQLRepo {
	return &SQLRepo{DB: db, Now: time.Now}
}

func (r *SQLRepo) now() time.Time {
	return r.Now().UTC().Truncate(time.Second)
}

const albumColumns = `
	SELECT a.id, a.title, a.created_at,
		(SELECT COUNT(*) FROM photos p WHERE p.album_id = a.id)
	FROM albums a`

func (r *SQLRepo) queryAlbums(ctx context.Context, query string, args ...any) ([]resource.Album, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	albums := []resource.Album{}
	for rows.Next() {
		var (
			a       resource.Album
			created time.Time
		)
		if err := rows.Scan(&a.ID, &a.Name, &created, &a.PhotoCount); err != nil {
			return nil, err
		}
		a.CreatedAt = isoTime(created)
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

func (r *SQLRepo) Albums(ctx context.Context, userID string) ([]resource.Album, error) {
	return r.queryAlbums(ctx, albumColumns+" WHERE a.user_id = ? ORDER BY a.id", userID)
}

// RecentAlbums lists the user's newest albums first.
func (r *SQLRepo) RecentAlbums(ctx context.Context, userID string, limit int) ([]resource.Album, error) {
	return r.queryAlbums(ctx, albumColumns+" WHERE a.user_id = ? ORDER BY a.created_at DESC, a.id DESC LIMIT ?", userID, limit)
}

func (r *SQLRepo) Album(ctx context.Context, userID string, albumID int64) (*resource.Album, error) {
	albums, err := r.queryAlbums(ctx, albumColumns+" WHERE a.id = ? AND a.user_id = ?", albumID, userID)
	if err != nil {
		return nil, err
	}
	if len(albums) == 0 {
		return nil, ErrNotFound
	}
	return &albums[0], nil
}

// AlbumByID loads an album regardless of owner.
func (r *SQLRepo) AlbumByID(ctx context.Context, albumID int64) (*resource.Album, error) {
	albums, err := r.queryAlbums(ctx, albumColumns+" WHERE a.id = ?", albumID)
	if err != nil {
		return nil, err
	}
	if len(albums) == 0 {
		return nil, ErrNotFound
	}
	return &albums[0], nil
}

func (r *SQLRepo) CreateAlbum(ctx context.Context, userID, name string) (*resource.Album, error) {
	created := r.now()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO albums (user_id, title, created_at) VALUES (?, ?, ?)",
		userID, name, created,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &resource.Album{ID: id, Name: name, CreatedAt: isoTime(created)}, nil
}

// DeleteAlbum removes the album with its photos and returns the photos'
// file paths so the caller can remove the files.
func (r *SQLRepo) DeleteAlbum(ctx context.Context, userID string, albumID int64) ([]string, error) {
	if _, err := r.Album(ctx, userID, albumID); err != nil {
		return nil, err
	}
	photos, err := r.Photos(ctx, albumID)
	if err != nil {
		return nil, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmts := []string{
		"DELETE FROM shares WHERE photo_id IN (SELECT id FROM photos WHERE album_id = ?)",
		"DELETE FROM shares WHERE album_id = ?",
		"DELETE FROM event_albums WHERE album_id = ?",
		"DELETE FROM photos WHERE album_id = ?",
		"DELETE FROM albums WHERE id = ?",
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, albumID); err != nil {
			return nil, fmt.Errorf("delete album: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(photos))
	for _, p := range photos {
		paths = append(paths, p.Filepath)
	}
	return paths, nil
}

// OwnsAlbums reports whether every album in ids belongs to userID.
func (r *SQLRepo) OwnsAlbums(ctx context.Context, userID string, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM albums WHERE user_id = ? AND id IN ("+placeholders(len(ids))+")",
		args...,
	).Scan(&n)
	return n == len(ids), err
}

const photoColumns = "SELECT id, user_id, album_id, filename, filepath, size, uploaded_at FROM photos"

func (r *SQLRepo) queryPhotos(ctx context.Context, query string, args ...any) ([]Photo, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := []Photo{}
	for rows.Next() {
		var (
			p        Photo
			uploaded time.Time
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.AlbumID, &p.Filename, &p.Filepath, &p.Size, &uploaded); err != nil {
			return nil, err
		}
		p.UploadedAt = isoTime(uploaded)
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (r *SQLRepo) Photos(ctx context.Context, albumID int64) ([]resource.Photo, error) {
	photos, err := r.queryPhotos(ctx, photoColumns+" WHERE album_id = ? ORDER BY uploaded_at, id", albumID)
	if err != nil {
		return nil, err
	}
	return resources(photos), nil
}

func (r *SQLRepo) Photo(ctx context.Context, photoID int64) (*Photo, error) {
	return r.onePhoto(ctx, photoColumns+" WHERE id = ?", photoID)
}

func (r *SQLRepo) PhotoByPath(ctx context.Context, path string) (*Photo, error) {
	return r.onePhoto(ctx, photoColumns+" WHERE filepath = ?", path)
}

func (r *SQLRepo) onePhoto(ctx context.Context, query string, arg any) (*Photo, error) {
	photos, err := r.queryPhotos(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	if len(photos) == 0 {
		return nil, ErrNotFound
	}
	return &photos[0], nil
}

func (r *SQLRepo) AddPhoto(ctx context.Context, userID string, albumID int64, filename, path string, size int64) (*resource.Photo, error) {
	uploaded := r.now()
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO photos (user_id, album_id, filename, filepath, size, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, userID, albumID, filename, path, size, uploaded)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &resource.Photo{
		ID:         id,
		Filename:   filename,
		Filepath:   path,
		UploadedAt: isoTime(uploaded),
		AlbumID:    albumID,
		Size:       size,
	}, nil
}

// DeletePhoto removes one of the user's photos and returns its file path.
func (r *SQLRepo) DeletePhoto(ctx context.Context, userID string, photoID int64) (string, error) {
	p, err := r.Photo(ctx, photoID)
	if err != nil {
		return "", err
	}
	if p.UserID != userID {
		return "", ErrNotFound
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM shares WHERE photo_id = ?", photoID); err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM photos WHERE id = ?", photoID); err != nil {
		return "", err
	}
	return p.Filepath, tx.Commit()
}

// StorageBytes sums the sizes of the user's photos.
func (r *SQLRepo) StorageBytes(ctx context.Context, userID string) (int64, error) {
	var total sql.NullInt64
	err := r.DB.QueryRowContext(ctx, "SELECT SUM(size) FROM photos WHERE user_id = ?", userID).Scan(&total)
	return total.Int64, err
}

func resources(photos []Photo) []resource.Photo {
	out := make([]resource.Photo, 0, len(photos))
	for _, p := range photos {
		out = append(out, p.Photo)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func newShare(kind grant.Kind, targetID int64, canComment bool) (*Share, error) {
	token, err := generator.ShareToken()
	if err != nil {
		return nil, fmt.Errorf("share token gen error: %w", err)
	}
	s := &Share{Token: token, CanComment: canComment}
	switch kind {
	case grant.KindAlbum:
		s.AlbumID = targetID
	case grant.KindPhoto:
		s.PhotoID = targetID
	case grant.KindEvent:
		s.EventID = targetID
	default:
		return nil, fmt.Errorf("%w: %q", grant.ErrUnknownKind, kind)
	}
	return s, nil
}

func (r *SQLRepo) insertShare(ctx context.Context, tx *sql.Tx, s *Share) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO shares (token, album_id, photo_id, event_id, can_comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.Token, nullID(s.AlbumID), nullID(s.PhotoID), nullID(s.EventID), s.CanComment, r.now())
	if err != nil {
		return err
	}
	s.ID, err = res.LastInsertId()
	return err
}
