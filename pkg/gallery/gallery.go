// Package gallery covers the owner area: albums, photos, events and the
// dashboard. Every call carries the session credential and passes the
// capability gate first.
package gallery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"pixshare/pkg/apperr"
	"pixshare/pkg/capability"
	"pixshare/pkg/dispatcher"
	"pixshare/pkg/resource"
)

type Sender interface {
	Send(ctx context.Context, req dispatcher.Request, out any) error
}

type CredentialSource interface {
	Credential() (string, bool)
}

type Client struct {
	sender Sender
	creds  CredentialSource
	logger *slog.Logger
}

func New(sender Sender, creds CredentialSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{sender: sender, creds: creds, logger: logger}
}

// owner returns the credential once the gate allows action for the session.
func (c *Client) owner(action capability.Action) (string, error) {
	tok, ok := c.creds.Credential()
	if err := capability.Enforce(capability.Check(action, capability.Context{Authenticated: ok}), action); err != nil {
		return "", err
	}
	return tok, nil
}

func (c *Client) send(ctx context.Context, action capability.Action, req dispatcher.Request, out any) error {
	tok, err := c.owner(action)
	if err != nil {
		return err
	}
	req.Credential = tok
	return c.sender.Send(ctx, req, out)
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}

func (c *Client) Albums(ctx context.Context) ([]resource.Album, error) {
	var out struct {
		Albums []resource.Album `json:"albums"`
	}
	if err := c.send(ctx, capability.ActionRead, dispatcher.Request{Method: http.MethodGet, Path: "/albums"}, &out); err != nil {
		return nil, err
	}
	return out.Albums, nil
}

func (c *Client) Album(ctx context.Context, albumID int64) (*resource.Album, error) {
	var out resource.Album
	if err := c.send(ctx, capability.ActionRead, dispatcher.Request{Method: http.MethodGet, Path: "/albums/" + id(albumID)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateAlbum(ctx context.Context, name string) (*resource.Album, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("album name is required")
	}
	var out struct {
		Album resource.Album `json:"album"`
	}
	err := c.send(ctx, capability.ActionMutate, dispatcher.Request{
		Method: http.MethodPost,
		Path:   "/albums",
		Body:   map[string]string{"name": name},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Album, nil
}

func (c *Client) DeleteAlbum(ctx context.Context, albumID int64) error {
	return c.send(ctx, capability.ActionMutate, dispatcher.Request{Method: http.MethodDelete, Path: "/albums/" + id(albumID)}, nil)
}

func (c *Client) Photos(ctx context.Context, albumID int64) ([]resource.Photo, error) {
	var out struct {
		Photos []resource.Photo `json:"photos"`
	}
	err := c.send(ctx, capability.ActionRead, dispatcher.Request{Method: http.MethodGet, Path: "/albums/" + id(albumID) + "/photos"}, &out)
	if err != nil {
		return nil, err
	}
	return out.Photos, nil
}

// File is one photo to upload.
type File struct {
	Name    string
	Content io.Reader
}

// Upload sends files one at a time, then re-reads the album. The listing is
// requested only after every upload has been acknowledged; a failed upload
// stops the batch and skips the refresh.
func (c *Client) Upload(ctx context.Context, albumID int64, files ...File) ([]resource.Photo, error) {
	if len(files) == 0 {
		return nil, apperr.Validation("no files selected")
	}
	for _, f := range files {
		if strings.TrimSpace(f.Name) == "" || f.Content == nil {
			return nil, apperr.Validation("file name and content are required")
		}
	}

	for i, f := range files {
		err := c.send(ctx, capability.ActionMutate, dispatcher.Request{
			Method: http.MethodPost,
			Path:   "/albums/" + id(albumID) + "/photos",
			Upload: &dispatcher.Upload{Field: "photo", FileName: f.Name, Content: f.Content},
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("upload %s (%d of %d): %w", f.Name, i+1, len(files), err)
		}
		c.logger.Debug("photo uploaded", "album", albumID, "file", f.Name)
	}
	return c.Photos(ctx, albumID)
}

func (c *Client) DeletePhoto(ctx context.Context, photoID int64) error {
	return c.send(ctx, capability.ActionMutate, dispatcher.Request{Method: http.MethodDelete, Path: "/photos/" + id(photoID)}, nil)
}

// Comments lists a photo's comments as the owner.
func (c *Client) Comments(ctx context.Context, photoID int64) ([]resource.Comment, error) {
	var out struct {
		Comments []resource.Comment `json:"comments"`
	}
	err := c.send(ctx, capability.ActionRead, dispatcher.Request{Method: http.MethodGet, Path: "/photos/" + id(photoID) + "/comments"}, &out)
	if err != nil {
		return nil, err
	}
	return out.Comments, nil
}

func (c *Client) PostComment(ctx context.Context, photoID int64, body string) (*resource.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Validation("comment is empty")
	}
	var out struct {
		Comment resource.Comment `json:"comment"`
	}
	err := c.send(ctx, capability.ActionComment, dispatcher.Request{
		Method: http.MethodPost,
		Path:   "/photos/" + id(photoID) + "/comments",
		Body:   map[string]string{"content": body},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

// DeleteComment removes a comment. The server allows it only for the
// comment's author and answers 403 otherwise.
func (c *Client) DeleteComment(ctx context.Context, photoID, commentID int64) error {
	return c.send(ctx, capability.ActionComment, dispatcher.Request{
		Method: http.MethodDelete,
		Path:   "/photos/" + id(photoID) + "/comments/" + id(commentID),
	}, nil)
}
