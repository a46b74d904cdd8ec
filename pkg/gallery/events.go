package gallery

import (
	"context"
	"net/http"
	"strings"

	"pixshare/pkg/apperr"
	"pixshare/pkg/capability"
	"pixshare/pkg/dispatcher"
	"pixshare/pkg/grant"
	"pixshare/pkg/resource"
)

func (c *Client) Events(ctx context.Context) ([]resource.Event, error) {
	var out struct {
		Events []resource.Event `json:"events"`
	}
	if err := c.send(ctx, capability.ActionRead, dispatcher.Request{Method: http.MethodGet, Path: "/events"}, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (c *Client) Event(ctx context.Context, eventID int64) (*resource.Event, error) {
	var out resource.Event
	if err := c.send(ctx, capability.ActionRead, dispatcher.Request{Method: http.MethodGet, Path: "/events/" + id(eventID)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateEvent(ctx context.Context, name, description string) (*resource.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("event name is required")
	}
	var out struct {
		Event resource.Event `json:"event"`
	}
	err := c.send(ctx, capability.ActionMutate, dispatcher.Request{
		Method: http.MethodPost,
		Path:   "/events",
		Body:   map[string]string{"name": name, "description": description},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Event, nil
}

// UpdateEvent edits an event. An empty name keeps the current one; a nil
// description leaves it unchanged.
func (c *Client) UpdateEvent(ctx context.Context, eventID int64, name string, description *string) (*resource.Event, error) {
	body := map[string]string{}
	if name = strings.TrimSpace(name); name != "" {
		body["name"] = name
	}
	if description != nil {
		body["description"] = *description
	}
	if len(body) == 0 {
		return nil, apperr.Validation("nothing to update")
	}
	var out struct {
		Event resource.Event `json:"event"`
	}
	err := c.send(ctx, capability.ActionMutate, dispatcher.Request{
		Method: http.MethodPut,
		Path:   "/events/" + id(eventID),
		Body:   body,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Event, nil
}

func (c *Client) DeleteEvent(ctx context.Context, eventID int64) error {
	return c.send(ctx, capability.ActionMutate, dispatcher.Request{Method: http.MethodDelete, Path: "/events/" + id(eventID)}, nil)
}

// AttachAlbums adds the caller's albums to an event. With a nil grant the
// caller acts as the event owner. With a grant the caller reached the event
// through its share link and must hold a session as well: the link opens the
// event, the session vouches for the albums.
func (c *Client) AttachAlbums(ctx context.Context, g *grant.Grant, eventID int64, albumIDs []int64) error {
	ids := uniquePositive(albumIDs)
	if len(ids) == 0 {
		return apperr.Validation("enter one or more album ids")
	}

	tok, ok := c.creds.Credential()
	req := dispatcher.Request{
		Method:     http.MethodPost,
		Path:       "/events/" + id(eventID) + "/albums",
		Credential: tok,
		Body:       map[string][]int64{"album_ids": ids},
	}

	var decision capability.Decision
	if g == nil {
		decision = capability.Check(capability.ActionMutate, capability.Context{Authenticated: ok})
	} else {
		decision = capability.Compose(capability.Context{Authenticated: ok, Grant: g}, capability.AttachToSharedEvent(eventID)...)
		req.ShareToken = g.Token
	}
	if err := capability.Enforce(decision, capability.ActionMutate); err != nil {
		return err
	}
	return c.sender.Send(ctx, req, nil)
}

// RemoveAlbum detaches an album from an event. Only the event owner may do
// it; a grant, when given, is passed along so the server can locate the
// event the same way the page did.
func (c *Client) RemoveAlbum(ctx context.Context, g *grant.Grant, eventID, albumID int64) error {
	req := dispatcher.Request{
		Method: http.MethodDelete,
		Path:   "/events/" + id(eventID) + "/albums/" + id(albumID),
	}
	if g != nil {
		req.ShareToken = g.Token
	}
	return c.send(ctx, capability.ActionMutate, req, nil)
}

func uniquePositive(in []int64) []int64 {
	seen := make(map[int64]struct{}, len(in))
	out := make([]int64, 0, len(in))
	for _, n := range in {
		if n <= 0 {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
