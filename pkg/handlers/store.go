package handlers

import (
	"context"

	"pixshare/pkg/grant"
	"pixshare/pkg/library"
	"pixshare/pkg/resource"
)

// Store is the part of the library repository the handlers use.
type Store interface {
	Albums(ctx context.Context, userID string) ([]resource.Album, error)
	RecentAlbums(ctx context.Context, userID string, limit int) ([]resource.Album, error)
	Album(ctx context.Context, userID string, albumID int64) (*resource.Album, error)
	AlbumByID(ctx context.Context, albumID int64) (*resource.Album, error)
	CreateAlbum(ctx context.Context, userID, name string) (*resource.Album, error)
	DeleteAlbum(ctx context.Context, userID string, albumID int64) ([]string, error)
	OwnsAlbums(ctx context.Context, userID string, ids []int64) (bool, error)

	Photos(ctx context.Context, albumID int64) ([]resource.Photo, error)
	Photo(ctx context.Context, photoID int64) (*library.Photo, error)
	PhotoByPath(ctx context.Context, path string) (*library.Photo, error)
	AddPhoto(ctx context.Context, userID string, albumID int64, filename, path string, size int64) (*resource.Photo, error)
	DeletePhoto(ctx context.Context, userID string, photoID int64) (string, error)
	StorageBytes(ctx context.Context, userID string) (int64, error)

	Events(ctx context.Context, userID string) ([]resource.Event, error)
	Event(ctx context.Context, userID string, eventID int64) (*resource.Event, error)
	EventByID(ctx context.Context, eventID int64) (*resource.Event, string, error)
	CreateEvent(ctx context.Context, userID, name, description string) (*resource.Event, error)
	UpdateEvent(ctx context.Context, userID string, eventID int64, name string, description *string) (*resource.Event, error)
	DeleteEvent(ctx context.Context, userID string, eventID int64) error
	RotateEventLink(ctx context.Context, userID string, eventID int64, revokeOld bool) (*library.Share, error)
	AttachAlbums(ctx context.Context, eventID int64, albumIDs []int64) error
	DetachAlbum(ctx context.Context, eventID, albumID int64) error
	EventAlbums(ctx context.Context, eventID int64) ([]resource.Album, error)
	EventPhotos(ctx context.Context, eventID int64) ([]resource.Photo, error)

	CreateShare(ctx context.Context, userID string, kind grant.Kind, targetID int64, canComment bool) (*library.Share, error)
	RevokeShare(ctx context.Context, userID string, shareID int64) error
	ShareByToken(ctx context.Context, token string) (*library.Share, error)
	Covers(ctx context.Context, s *library.Share, p *library.Photo) (bool, error)
}
