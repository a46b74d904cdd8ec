package library_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixshare/internal/sqldb"
	"pixshare/pkg/grant"
	"pixshare/pkg/library"
)

func newRepo(t *testing.T) *library.SQLRepo {
	db, err := sqldb.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := library.NewSQLRepo(db)
	clock := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return repo
}

func TestAlbumsAndPhotos(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	a, err := repo.CreateAlbum(ctx, "ann", "Trip")
	require.NoError(t, err)
	b, err := repo.CreateAlbum(ctx, "ann", "Party")
	require.NoError(t, err)
	_, err = repo.CreateAlbum(ctx, "bob", "Bob's")
	require.NoError(t, err)

	p1, err := repo.AddPhoto(ctx, "ann", a.ID, "one.jpg", "photos/ann/1/one.jpg", 1000)
	require.NoError(t, err)
	_, err = repo.AddPhoto(ctx, "ann", a.ID, "two.jpg", "photos/ann/1/two.jpg", 500)
	require.NoError(t, err)

	albums, err := repo.Albums(ctx, "ann")
	require.NoError(t, err)
	require.Len(t, albums, 2)
	assert.Equal(t, 2, albums[0].PhotoCount)
	assert.Equal(t, "2025-05-01T12:01:00", albums[0].CreatedAt)

	recent, err := repo.RecentAlbums(ctx, "ann", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, b.ID, recent[0].ID)

	_, err = repo.Album(ctx, "bob", a.ID)
	assert.ErrorIs(t, err, library.ErrNotFound)

	used, err := repo.StorageBytes(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), used)

	used, err = repo.StorageBytes(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, used)

	byPath, err := repo.PhotoByPath(ctx, "photos/ann/1/one.jpg")
	require.NoError(t, err)
	assert.Equal(t, p1.ID, byPath.ID)
	assert.Equal(t, "ann", byPath.UserID)

	_, err = repo.DeletePhoto(ctx, "bob", p1.ID)
	assert.ErrorIs(t, err, library.ErrNotFound)
	path, err := repo.DeletePhoto(ctx, "ann", p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "photos/ann/1/one.jpg", path)

	paths, err := repo.DeleteAlbum(ctx, "ann", a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/ann/1/two.jpg"}, paths)

	photos, err := repo.Photos(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, photos)

	owns, err := repo.OwnsAlbums(ctx, "ann", []int64{b.ID})
	require.NoError(t, err)
	assert.True(t, owns)
	owns, err = repo.OwnsAlbums(ctx, "ann", []int64{b.ID, a.ID})
	require.NoError(t, err)
	assert.False(t, owns)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	ev, err := repo.CreateEvent(ctx, "ann", "Wedding", "June")
	require.NoError(t, err)
	require.NotEmpty(t, ev.ShareID)

	first, err := repo.ShareByToken(ctx, ev.ShareID)
	require.NoError(t, err)
	assert.Equal(t, grant.KindEvent, first.Kind())
	assert.Equal(t, ev.ID, first.TargetID())

	album, err := repo.CreateAlbum(ctx, "ann", "Ceremony")
	require.NoError(t, err)
	photo, err := repo.AddPhoto(ctx, "ann", album.ID, "kiss.jpg", "photos/ann/1/kiss.jpg", 10)
	require.NoError(t, err)

	require.NoError(t, repo.AttachAlbums(ctx, ev.ID, []int64{album.ID}))
	require.NoError(t, repo.AttachAlbums(ctx, ev.ID, []int64{album.ID}))

	albums, err := repo.EventAlbums(ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, albums, 1)

	photos, err := repo.EventPhotos(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, album.ID, photos[0].AlbumID)

	p, err := repo.Photo(ctx, photo.ID)
	require.NoError(t, err)
	covers, err := repo.Covers(ctx, first, p)
	require.NoError(t, err)
	assert.True(t, covers)

	t.Run("rotate keeps old links by default", func(t *testing.T) {
		s, err := repo.RotateEventLink(ctx, "ann", ev.ID, false)
		require.NoError(t, err)
		assert.NotEqual(t, ev.ShareID, s.Token)

		_, err = repo.ShareByToken(ctx, ev.ShareID)
		assert.NoError(t, err)

		got, err := repo.Event(ctx, "ann", ev.ID)
		require.NoError(t, err)
		assert.Equal(t, s.Token, got.ShareID)
	})

	t.Run("rotate with revoke", func(t *testing.T) {
		s, err := repo.RotateEventLink(ctx, "ann", ev.ID, true)
		require.NoError(t, err)

		_, err = repo.ShareByToken(ctx, ev.ShareID)
		assert.ErrorIs(t, err, library.ErrNotFound)
		_, err = repo.ShareByToken(ctx, s.Token)
		assert.NoError(t, err)
	})

	t.Run("other users cannot rotate", func(t *testing.T) {
		_, err := repo.RotateEventLink(ctx, "bob", ev.ID, false)
		assert.ErrorIs(t, err, library.ErrNotFound)
	})

	t.Run("update keeps omitted fields", func(t *testing.T) {
		got, err := repo.UpdateEvent(ctx, "ann", ev.ID, "Reception", nil)
		require.NoError(t, err)
		assert.Equal(t, "Reception", got.Name)
		assert.Equal(t, "June", got.Description)

		blank := ""
		_, err = repo.UpdateEvent(ctx, "ann", ev.ID, "", &blank)
		require.NoError(t, err)
		got, err = repo.Event(ctx, "ann", ev.ID)
		require.NoError(t, err)
		assert.Equal(t, "Reception", got.Name)
		assert.Empty(t, got.Description)

		_, err = repo.UpdateEvent(ctx, "bob", ev.ID, "Mine", nil)
		assert.ErrorIs(t, err, library.ErrNotFound)
	})

	require.NoError(t, repo.DetachAlbum(ctx, ev.ID, album.ID))
	assert.ErrorIs(t, repo.DetachAlbum(ctx, ev.ID, album.ID), library.ErrNotFound)

	covers, err = repo.Covers(ctx, first, p)
	require.NoError(t, err)
	assert.False(t, covers)

	require.NoError(t, repo.DeleteEvent(ctx, "ann", ev.ID))
	events, err := repo.Events(ctx, "ann")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestShares(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	album, err := repo.CreateAlbum(ctx, "ann", "Trip")
	require.NoError(t, err)
	other, err := repo.CreateAlbum(ctx, "ann", "Other")
	require.NoError(t, err)
	photo, err := repo.AddPhoto(ctx, "ann", album.ID, "a.jpg", "photos/a.jpg", 1)
	require.NoError(t, err)
	stray, err := repo.AddPhoto(ctx, "ann", other.ID, "b.jpg", "photos/b.jpg", 1)
	require.NoError(t, err)

	_, err = repo.CreateShare(ctx, "bob", grant.KindAlbum, album.ID, true)
	assert.ErrorIs(t, err, library.ErrNotFound)

	s, err := repo.CreateShare(ctx, "ann", grant.KindAlbum, album.ID, true)
	require.NoError(t, err)
	assert.Len(t, s.Token, 32)
	assert.True(t, s.CanComment)

	got, err := repo.ShareByToken(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, grant.KindAlbum, got.Kind())

	inside, err := repo.Photo(ctx, photo.ID)
	require.NoError(t, err)
	outside, err := repo.Photo(ctx, stray.ID)
	require.NoError(t, err)

	ok, err := repo.Covers(ctx, got, inside)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Covers(ctx, got, outside)
	require.NoError(t, err)
	assert.False(t, ok)

	ps, err := repo.CreateShare(ctx, "ann", grant.KindPhoto, photo.ID, false)
	require.NoError(t, err)
	ok, err = repo.Covers(ctx, ps, inside)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, repo.RevokeShare(ctx, "bob", s.ID), library.ErrForbidden)
	assert.NoError(t, repo.RevokeShare(ctx, "ann", s.ID))
	assert.ErrorIs(t, repo.RevokeShare(ctx, "ann", s.ID), library.ErrNotFound)

	_, err = repo.ShareByToken(ctx, s.Token)
	assert.ErrorIs(t, err, library.ErrNotFound)
}
