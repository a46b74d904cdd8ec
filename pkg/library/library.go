// Package library is the stub server's store for albums, photos, events and
// share links. Every owner-scoped call hides resources of other users behind
// ErrNotFound.
package library

import (
	"database/sql"
	"errors"
	"time"

	"pixshare/pkg/grant"
	"pixshare/pkg/resource"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("not authorized")
)

// Share is a stored share link. Exactly one of the target ids is set.
type Share struct {
	ID         int64
	Token      string
	AlbumID    int64
	PhotoID    int64
	EventID    int64
	CanComment bool
}

func (s *Share) Kind() grant.Kind {
	switch {
	case s.AlbumID != 0:
		return grant.KindAlbum
	case s.PhotoID != 0:
		return grant.KindPhoto
	case s.EventID != 0:
		return grant.KindEvent
	}
	return ""
}

func (s *Share) TargetID() int64 {
	switch s.Kind() {
	case grant.KindAlbum:
		return s.AlbumID
	case grant.KindPhoto:
		return s.PhotoID
	case grant.KindEvent:
		return s.EventID
	}
	return 0
}

// Photo is a stored photo with its owner.
type Photo struct {
	resource.Photo
	UserID string
}

func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(resource.TimeLayout)
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
