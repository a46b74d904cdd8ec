// Package share opens share links, builds token-carrying media URLs and
// handles guest comments. Owner-side link management lives in owner.go.
package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pixshare/pkg/apperr"
	"pixshare/pkg/capability"
	"pixshare/pkg/dispatcher"
	"pixshare/pkg/grant"
	"pixshare/pkg/resource"
)

const (
	shareTokenParam = "t"
	uploadsPath     = "uploads"
)

// Sender is the part of the dispatcher this package needs.
type Sender interface {
	Send(ctx context.Context, req dispatcher.Request, out any) error
}

// Resolved is an opened share link: the grant plus whatever the link shows.
type Resolved struct {
	Grant grant.Grant

	Album  *resource.Album
	Event  *resource.Event
	Photo  *resource.Photo
	Albums []resource.Album
	Photos []resource.Photo
}

// PhotoRef returns the reference for a photo shown by the link, with its
// album and event as parents. ok is false for photos the link does not show.
func (r *Resolved) PhotoRef(photoID int64) (ref grant.Ref, ok bool) {
	var p *resource.Photo
	switch {
	case r.Photo != nil && r.Photo.ID == photoID:
		p = r.Photo
	default:
		for i := range r.Photos {
			if r.Photos[i].ID == photoID {
				p = &r.Photos[i]
				break
			}
		}
	}
	if p == nil {
		return grant.Ref{}, false
	}

	ref = grant.Ref{Kind: grant.KindPhoto, ID: p.ID}
	if p.AlbumID != 0 {
		album := &grant.Ref{Kind: grant.KindAlbum, ID: p.AlbumID}
		if r.Event != nil {
			album.Parent = &grant.Ref{Kind: grant.KindEvent, ID: r.Event.ID}
		}
		ref.Parent = album
	}
	return ref, true
}

// Target is the gate target for a photo reached through the link. A photo the
// link does not show gets a bare reference, which no grant but a photo grant
// for that same photo covers.
func (r *Resolved) Target(photoID int64) *grant.Ref {
	ref, ok := r.PhotoRef(photoID)
	if !ok {
		ref = grant.Ref{Kind: grant.KindPhoto, ID: photoID}
	}
	return &ref
}

type payload struct {
	CanComment bool             `json:"can_comment"`
	Album      *resource.Album  `json:"album"`
	Event      *resource.Event  `json:"event"`
	Photo      *resource.Photo  `json:"photo"`
	Albums     []resource.Album `json:"albums"`
	Photos     []resource.Photo `json:"photos"`
}

type Resolver struct {
	sender Sender
	media  *url.URL
	logger *slog.Logger
}

// NewResolver builds a resolver whose media URLs are rooted at mediaBase, the
// origin that serves /uploads.
func NewResolver(sender Sender, mediaBase string, logger *slog.Logger) (*Resolver, error) {
	media, err := url.Parse(strings.TrimRight(mediaBase, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse media base: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{sender: sender, media: media, logger: logger}, nil
}

// MediaBase derives the media origin from the API base by dropping a trailing
// "/api" segment.
func MediaBase(apiBase *url.URL) string {
	u := *apiBase
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/api")
	u.RawQuery = ""
	return u.String()
}

// Resolve opens a share link. It never sends the visitor's own credential.
// Any refusal ends as apperr.ErrExpired or apperr.ErrNotFound; transport
// failures stay apperr.ErrNetwork.
func (r *Resolver) Resolve(ctx context.Context, token string, kind grant.Kind) (*Resolved, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperr.ErrNotFound
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", grant.ErrUnknownKind, kind)
	}

	var p payload
	err := r.sender.Send(ctx, dispatcher.Request{
		Method: http.MethodGet,
		Path:   "/s/" + url.PathEscape(token) + "/" + string(kind),
	}, &p)
	if err != nil {
		return nil, linkError(err)
	}

	res := &Resolved{
		Album:  p.Album,
		Event:  p.Event,
		Photo:  p.Photo,
		Albums: p.Albums,
		Photos: p.Photos,
		Grant:  grant.Grant{Token: token, Kind: kind, CanComment: p.CanComment},
	}
	switch kind {
	case grant.KindAlbum:
		if p.Album == nil {
			return nil, fmt.Errorf("%w: album missing from share payload", apperr.ErrNotFound)
		}
		res.Grant.ResourceID = p.Album.ID
	case grant.KindEvent:
		if p.Event == nil {
			return nil, fmt.Errorf("%w: event missing from share payload", apperr.ErrNotFound)
		}
		res.Grant.ResourceID = p.Event.ID
	case grant.KindPhoto:
		if p.Photo == nil {
			return nil, fmt.Errorf("%w: photo missing from share payload", apperr.ErrNotFound)
		}
		res.Grant.ResourceID = p.Photo.ID
	}

	r.logger.Debug("share link opened", "kind", kind, "resource", res.Grant.ResourceID, "can_comment", p.CanComment)
	return res, nil
}

// linkError folds every refusal into the two link kinds so the caller cannot
// tell a wrong token from a missing resource.
func linkError(err error) error {
	var he *apperr.HTTPError
	if !errors.As(err, &he) {
		return err
	}
	kind := apperr.ErrNotFound
	msg := strings.ToLower(he.Message)
	if he.Status == http.StatusGone || strings.Contains(msg, "expired") || strings.Contains(msg, "invalid") {
		kind = apperr.ErrExpired
	}
	return &apperr.HTTPError{Status: he.Status, Message: he.Message, Kind: kind}
}

// MediaURL is the URL of an uploaded file reached through a share link. The
// token is the only authorization an anonymous image request carries, so it
// is never optional.
func (r *Resolver) MediaURL(filepath, token string) (string, error) {
	filepath = strings.TrimLeft(strings.TrimSpace(filepath), "/")
	if filepath == "" {
		return "", apperr.Validation("media path is empty")
	}
	if strings.TrimSpace(token) == "" {
		return "", apperr.Validation("share token is empty")
	}

	u := r.media.JoinPath(uploadsPath, filepath)
	u.RawQuery = url.Values{shareTokenParam: {token}}.Encode()
	return u.String(), nil
}

// guestPhoto runs the gate for a guest acting on photoID. target, when set,
// places the photo under the resources the link resolved to (see
// Resolved.Target) and must name the same photo.
func guestPhoto(action capability.Action, g *grant.Grant, photoID int64, target *grant.Ref) error {
	if target != nil && (target.Kind != grant.KindPhoto || target.ID != photoID) {
		return apperr.Validation(fmt.Sprintf("target %s %d is not photo %d", target.Kind, target.ID, photoID))
	}
	decision := capability.Check(action, capability.Context{Grant: g, Target: target})
	return capability.Enforce(decision, action)
}

// Comments lists a photo's comments on the strength of the share token. With
// a target, photos outside the link are refused before any request goes out.
func (r *Resolver) Comments(ctx context.Context, g grant.Grant, photoID int64, target *grant.Ref) ([]resource.Comment, error) {
	if err := guestPhoto(capability.ActionRead, &g, photoID, target); err != nil {
		return nil, err
	}

	var out struct {
		Comments []resource.Comment `json:"comments"`
	}
	err := r.sender.Send(ctx, dispatcher.Request{
		Method:     http.MethodGet,
		Path:       "/photos/" + strconv.FormatInt(photoID, 10) + "/comments",
		ShareToken: g.Token,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Comments, nil
}

// PostComment comments as a share guest. A grant without can_comment, or a
// target outside the link, is refused here before any request goes out.
func (r *Resolver) PostComment(ctx context.Context, g grant.Grant, photoID int64, target *grant.Ref, body string) (*resource.Comment, error) {
	if err := guestPhoto(capability.ActionComment, &g, photoID, target); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Validation("comment is empty")
	}

	var out struct {
		Comment resource.Comment `json:"comment"`
	}
	err := r.sender.Send(ctx, dispatcher.Request{
		Method:     http.MethodPost,
		Path:       "/photos/" + strconv.FormatInt(photoID, 10) + "/comments",
		ShareToken: g.Token,
		Body:       map[string]string{"content": body},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Comment, nil
}
