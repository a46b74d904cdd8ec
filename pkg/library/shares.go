package library

import (
	"context"
	"database/sql"
	"errors"

	"pixshare/pkg/grant"
)

// CreateShare issues a link for one of the user's resources.
func (r *SQLRepo) CreateShare(ctx context.Context, userID string, kind grant.Kind, targetID int64, canComment bool) (*Share, error) {
	owner, err := r.owner(ctx, kind, targetID)
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, ErrNotFound
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	s, err := newShare(kind, targetID, canComment)
	if err != nil {
		return nil, err
	}
	if err := r.insertShare(ctx, tx, s); err != nil {
		return nil, err
	}
	return s, tx.Commit()
}

// RevokeShare deletes a link. Only the owner of the shared resource may.
func (r *SQLRepo) RevokeShare(ctx context.Context, userID string, shareID int64) error {
	s, err := r.scanShare(r.DB.QueryRowContext(ctx, shareColumns+" WHERE id = ?", shareID))
	if err != nil {
		return err
	}
	owner, err := r.owner(ctx, s.Kind(), s.TargetID())
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if owner != userID {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx, "DELETE FROM shares WHERE id = ?", shareID)
	return err
}

func (r *SQLRepo) ShareByToken(ctx context.Context, token string) (*Share, error) {
	return r.scanShare(r.DB.QueryRowContext(ctx, shareColumns+" WHERE token = ?", token))
}

// Covers reports whether the share link reaches the photo: the photo itself,
// its album, or an event the album is attached to.
func (r *SQLRepo) Covers(ctx context.Context, s *Share, p *Photo) (bool, error) {
	switch s.Kind() {
	case grant.KindPhoto:
		return s.PhotoID == p.ID, nil
	case grant.KindAlbum:
		return s.AlbumID == p.AlbumID, nil
	case grant.KindEvent:
		var n int
		err := r.DB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM event_albums WHERE event_id = ? AND album_id = ?",
			s.EventID, p.AlbumID,
		).Scan(&n)
		return n > 0, err
	}
	return false, nil
}

const shareColumns = "SELECT id, token, album_id, photo_id, event_id, can_comment FROM shares"

func (r *SQLRepo) scanShare(row *sql.Row) (*Share, error) {
	var s Share
	var albumID, photoID, eventID sql.NullInt64
	if err := row.Scan(&s.ID, &s.Token, &albumID, &photoID, &eventID, &s.CanComment); err != nil {
		return nil, notFound(err)
	}
	s.AlbumID, s.PhotoID, s.EventID = albumID.Int64, photoID.Int64, eventID.Int64
	return &s, nil
}

func (r *SQLRepo) owner(ctx context.Context, kind grant.Kind, id int64) (string, error) {
	var table string
	switch kind {
	case grant.KindAlbum:
		table = "albums"
	case grant.KindPhoto:
		table = "photos"
	case grant.KindEvent:
		table = "events"
	default:
		return "", grant.ErrUnknownKind
	}
	var owner string
	err := r.DB.QueryRowContext(ctx, "SELECT user_id FROM "+table+" WHERE id = ?", id).Scan(&owner)
	return owner, notFound(err)
}
