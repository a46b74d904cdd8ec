package gallery_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pixshare/pkg/apperr"
	"pixshare/pkg/capability"
	"pixshare/pkg/dispatcher"
	"pixshare/pkg/gallery"
	"pixshare/pkg/grant"
)

type staticCreds string

func (c staticCreds) Credential() (string, bool) {
	return string(c), c != ""
}

type journal struct {
	mu    sync.Mutex
	lines []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.lines = append(j.lines, s)
	j.mu.Unlock()
}

func (j *journal) get() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.lines...)
}

func newClient(t *testing.T, creds string, h http.Handler) *gallery.Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	d, err := dispatcher.New(srv.URL + "/api")
	require.NoError(t, err)
	return gallery.New(d, staticCreds(creds), nil)
}

func TestClient_RequiresSession(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	ctx := context.Background()

	_, err := c.Albums(ctx)
	assert.True(t, capability.IsLoginRedirect(err))
	_, err = c.CreateAlbum(ctx, "Trip")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.ErrorIs(t, c.DeletePhoto(ctx, 1), apperr.ErrUnauthorized)
	assert.ErrorIs(t, c.RemoveAlbum(ctx, nil, 1, 2), apperr.ErrUnauthorized)
	_, err = c.Dashboard(ctx)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = c.UpdateEvent(ctx, 1, "Party", nil)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.ErrorIs(t, c.DeleteComment(ctx, 1, 2), apperr.ErrUnauthorized)
	assert.Zero(t, calls.Load())
}

func TestClient_AlbumsAndCreate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/albums", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"albums":[{"id":1,"name":"Trip","created_at":"2025-01-01T00:00:00","photo_count":2}]}`))
	})
	mux.HandleFunc("POST /api/albums", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Party", body["name"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"album":{"id":2,"name":"Party"}}`))
	})
	c := newClient(t, "abc123", mux)

	albums, err := c.Albums(context.Background())
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, 2, albums[0].PhotoCount)

	a, err := c.CreateAlbum(context.Background(), " Party ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.ID)

	_, err = c.CreateAlbum(context.Background(), "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestClient_UploadRefreshesAfterAcknowledgement(t *testing.T) {
	j := &journal{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/albums/4/photos", func(w http.ResponseWriter, r *http.Request) {
		_, hdr, err := r.FormFile("photo")
		if !assert.NoError(t, err) {
			return
		}
		time.Sleep(20 * time.Millisecond)
		j.add("upload " + hdr.Filename)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /api/albums/4/photos", func(w http.ResponseWriter, r *http.Request) {
		j.add("list")
		_, _ = w.Write([]byte(`{"photos":[{"id":1,"filename":"a.jpg"},{"id":2,"filename":"b.jpg"}]}`))
	})
	c := newClient(t, "abc123", mux)

	photos, err := c.Upload(context.Background(), 4,
		gallery.File{Name: "a.jpg", Content: strings.NewReader("a")},
		gallery.File{Name: "b.jpg", Content: strings.NewReader("b")},
	)
	require.NoError(t, err)
	assert.Len(t, photos, 2)
	assert.Equal(t, []string{"upload a.jpg", "upload b.jpg", "list"}, j.get())
}

func TestClient_UploadFailureSkipsRefresh(t *testing.T) {
	j := &journal{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/albums/4/photos", func(w http.ResponseWriter, r *http.Request) {
		j.add("upload")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"msg":"No file(s) provided"}`))
	})
	mux.HandleFunc("GET /api/albums/4/photos", func(w http.ResponseWriter, r *http.Request) {
		j.add("list")
	})
	c := newClient(t, "abc123", mux)

	_, err := c.Upload(context.Background(), 4,
		gallery.File{Name: "a.jpg", Content: strings.NewReader("a")},
		gallery.File{Name: "b.jpg", Content: strings.NewReader("b")},
	)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, []string{"upload"}, j.get())

	_, err = c.Upload(context.Background(), 4)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestClient_AttachAlbums(t *testing.T) {
	eventGrant := &grant.Grant{Token: "evtok", Kind: grant.KindEvent, ResourceID: 3}

	t.Run("share guest with session", func(t *testing.T) {
		var got []int64
		c := newClient(t, "abc123", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/events/3/albums", r.URL.Path)
			assert.Equal(t, "evtok", r.URL.Query().Get("t"))
			assert.Equal(t, "Bearer abc123", r.Header.Get("Authorization"))
			var body map[string][]int64
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			got = body["album_ids"]
		}))
		require.NoError(t, c.AttachAlbums(context.Background(), eventGrant, 3, []int64{5, 5, -1, 0, 6}))
		assert.Equal(t, []int64{5, 6}, got)
	})

	t.Run("share guest without session", func(t *testing.T) {
		var calls atomic.Int32
		c := newClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
		err := c.AttachAlbums(context.Background(), eventGrant, 3, []int64{5})
		assert.True(t, capability.IsLoginRedirect(err))
		assert.Zero(t, calls.Load())
	})

	t.Run("grant for another event", func(t *testing.T) {
		var calls atomic.Int32
		c := newClient(t, "abc123", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
		err := c.AttachAlbums(context.Background(), eventGrant, 4, []int64{5})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		assert.Zero(t, calls.Load())
	})

	t.Run("owner without grant", func(t *testing.T) {
		c := newClient(t, "abc123", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.URL.Query().Get("t"))
		}))
		assert.NoError(t, c.AttachAlbums(context.Background(), nil, 3, []int64{5}))
	})

	t.Run("no usable ids", func(t *testing.T) {
		c := newClient(t, "abc123", http.NotFoundHandler())
		assert.ErrorIs(t, c.AttachAlbums(context.Background(), nil, 3, []int64{0, -2}), apperr.ErrValidation)
	})
}

func TestClient_DashboardLoadsConcurrently(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(2)
	both := make(chan struct{})
	go func() {
		arrived.Wait()
		close(both)
	}()
	wait := func() {
		arrived.Done()
		select {
		case <-both:
		case <-time.After(2 * time.Second):
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dashboard/storage", func(w http.ResponseWriter, r *http.Request) {
		wait()
		_, _ = w.Write([]byte(`{"used_gb":1.5,"limit_gb":10}`))
	})
	mux.HandleFunc("GET /api/dashboard/recent-albums", func(w http.ResponseWriter, r *http.Request) {
		wait()
		_, _ = w.Write([]byte(`{"albums":[{"id":1,"name":"Trip"}]}`))
	})
	c := newClient(t, "abc123", mux)

	start := time.Now()
	d, err := c.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1.5, d.Storage.UsedGB)
	assert.Equal(t, float64(10), d.Storage.LimitGB)
	assert.Len(t, d.Recent, 1)
}

func TestClient_DashboardFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dashboard/storage", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /api/dashboard/recent-albums", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"albums":[]}`))
	})
	c := newClient(t, "abc123", mux)

	_, err := c.Dashboard(context.Background())
	var he *apperr.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusInternalServerError, he.Status)
}

func TestClient_UpdateEvent(t *testing.T) {
	var (
		mu  sync.Mutex
		got []map[string]any
	)
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/events/7", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		got = append(got, body)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"event":{"id":7,"name":"Reception","description":"","shareId":"tok"}}`))
	})
	c := newClient(t, "abc123", mux)
	ctx := context.Background()

	ev, err := c.UpdateEvent(ctx, 7, " Reception ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Reception", ev.Name)

	blank := ""
	_, err = c.UpdateEvent(ctx, 7, "", &blank)
	require.NoError(t, err)

	_, err = c.UpdateEvent(ctx, 7, "  ", nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []map[string]any{{"name": "Reception"}, {"description": ""}}, got)
}

func TestClient_DeleteComment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/photos/5/comments/9", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer author" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"msg":"Not authorized to delete this comment"}`))
			return
		}
		_, _ = w.Write([]byte(`{"msg":"Comment deleted"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	d, err := dispatcher.New(srv.URL + "/api")
	require.NoError(t, err)

	assert.NoError(t, gallery.New(d, staticCreds("author"), nil).DeleteComment(context.Background(), 5, 9))

	err = gallery.New(d, staticCreds("someone-else"), nil).DeleteComment(context.Background(), 5, 9)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.ErrorContains(t, err, "Not authorized to delete this comment")
}
