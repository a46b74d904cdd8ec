package gallery

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"pixshare/pkg/capability"
	"pixshare/pkg/dispatcher"
	"pixshare/pkg/resource"
)

type Dashboard struct {
	Storage resource.StorageUsage
	Recent  []resource.Album
}

func (c *Client) StorageUsage(ctx context.Context) (*resource.StorageUsage, error) {
	var out resource.StorageUsage
	if err := c.send(ctx, capability.ActionRead, dispatcher.Request{Method: http.MethodGet, Path: "/dashboard/storage"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecentAlbums(ctx context.Context) ([]resource.Album, error) {
	var out struct {
		Albums []resource.Album `json:"albums"`
	}
	if err := c.send(ctx, capability.ActionRead, dispatcher.Request{Method: http.MethodGet, Path: "/dashboard/recent-albums"}, &out); err != nil {
		return nil, err
	}
	return out.Albums, nil
}

// Dashboard loads storage usage and recent albums concurrently. The first
// failure cancels the other request.
func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		usage, err := c.StorageUsage(gctx)
		if err != nil {
			return err
		}
		d.Storage = *usage
		return nil
	})
	g.Go(func() error {
		albums, err := c.RecentAlbums(gctx)
		if err != nil {
			return err
		}
		d.Recent = albums
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
