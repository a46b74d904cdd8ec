package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pixshare/pkg/apperr"
	"pixshare/pkg/gallery"
	"pixshare/pkg/grant"
	"pixshare/pkg/resource"
	"pixshare/pkg/share"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func requireID(name string, v int64) error {
	if v <= 0 {
		return apperr.Validation("-" + name + " is required")
	}
	return nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("bad album id %q", part))
		}
		ids = append(ids, n)
	}
	return ids, nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password, at least 6 characters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.client.Register(ctx, *name, *email, *password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registered and signed in.")
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.client.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed in.")
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	a.client.Logout(ctx)
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func cmdWhoami(_ context.Context, a *app, _ []string) error {
	c, err := a.client.Session.Identity()
	if errors.Is(err, apperr.ErrUnauthorized) {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", c.User.Email, c.User.ID)
	return nil
}

func cmdProfile(ctx context.Context, a *app, _ []string) error {
	p, err := a.client.Account.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>, plan %s\n", p.Name, p.Email, p.Subscription)
	return nil
}

func cmdProfileUpdate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("profile-edit")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := a.client.Account.UpdateProfile(ctx, *name, *email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Profile updated: %s <%s>\n", p.Name, p.Email)
	return nil
}

func cmdPassword(ctx context.Context, a *app, args []string) error {
	fs := newFlags("password")
	current := fs.String("current", "", "current password")
	next := fs.String("new", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.client.Account.ChangePassword(ctx, *current, *next); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password updated.")
	return nil
}

// cmdWatch prints every sign-in state change, including ones made by other
// pixshare processes sharing the profile, until interrupted.
func cmdWatch(ctx context.Context, a *app, _ []string) error {
	state := func(ok bool) string {
		if ok {
			return "signed in"
		}
		return "signed out"
	}
	fmt.Fprintln(a.out, state(a.client.Session.IsAuthenticated()))
	unsubscribe := a.client.Session.Subscribe(func(ok bool) {
		fmt.Fprintln(a.out, state(ok))
	})
	defer unsubscribe()

	<-ctx.Done()
	return nil
}

func printAlbums(w io.Writer, albums []resource.Album) {
	if len(albums) == 0 {
		fmt.Fprintln(w, "No albums.")
		return
	}
	for _, al := range albums {
		fmt.Fprintf(w, "%6d  %-30s %4d photos  %s\n", al.ID, al.Name, al.PhotoCount, al.CreatedAt)
	}
}

func printPhotos(w io.Writer, photos []resource.Photo, media func(resource.Photo) string) {
	for _, p := range photos {
		fmt.Fprintf(w, "%6d  %-30s %s\n", p.ID, p.Filename, media(p))
	}
}

func cmdAlbums(ctx context.Context, a *app, _ []string) error {
	albums, err := a.client.Gallery.Albums(ctx)
	if err != nil {
		return err
	}
	printAlbums(a.out, albums)
	return nil
}

func cmdAlbum(ctx context.Context, a *app, args []string) error {
	fs := newFlags("album")
	id := fs.Int64("id", 0, "album id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("id", *id); err != nil {
		return err
	}
	album, err := a.client.Gallery.Album(ctx, *id)
	if err != nil {
		return err
	}
	photos, err := a.client.Gallery.Photos(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%d photos)\n", album.Name, len(photos))
	printPhotos(a.out, photos, func(p resource.Photo) string { return p.Filepath })
	return nil
}

func cmdAlbumCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("album-create")
	name := fs.String("name", "", "album name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	album, err := a.client.Gallery.CreateAlbum(ctx, *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created album %d.\n", album.ID)
	return nil
}

func cmdAlbumDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags("album-delete")
	id := fs.Int64("id", 0, "album id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("id", *id); err != nil {
		return err
	}
	return a.client.Gallery.DeleteAlbum(ctx, *id)
}

func cmdUpload(ctx context.Context, a *app, args []string) error {
	fs := newFlags("upload")
	album := fs.Int64("album", 0, "album id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("album", *album); err != nil {
		return err
	}

	files := make([]gallery.File, 0, fs.NArg())
	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		files = append(files, gallery.File{Name: filepath.Base(path), Content: f})
	}

	photos, err := a.client.Gallery.Upload(ctx, *album, files...)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %d file(s); the album now holds %d photos.\n", len(files), len(photos))
	return nil
}

func cmdPhotoDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags("photo-delete")
	id := fs.Int64("id", 0, "photo id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("id", *id); err != nil {
		return err
	}
	return a.client.Gallery.DeletePhoto(ctx, *id)
}

func cmdEvents(ctx context.Context, a *app, _ []string) error {
	events, err := a.client.Gallery.Events(ctx)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(a.out, "No events.")
	}
	for _, e := range events {
		fmt.Fprintf(a.out, "%6d  %-30s %s\n", e.ID, e.Name, share.PagePath(grant.KindEvent, e.ShareID))
	}
	return nil
}

func cmdEventCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("event-create")
	name := fs.String("name", "", "event name")
	desc := fs.String("description", "", "event description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	event, err := a.client.Gallery.CreateEvent(ctx, *name, *desc)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created event %d, public link %s\n", event.ID, share.PagePath(grant.KindEvent, event.ShareID))
	return nil
}

func cmdEventUpdate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("event-update")
	id := fs.Int64("id", 0, "event id")
	name := fs.String("name", "", "new event name")
	desc := fs.String("description", "", "new event description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("id", *id); err != nil {
		return err
	}
	// An explicit -description "" clears it; leaving the flag out keeps it.
	var description *string
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "description" {
			description = desc
		}
	})
	event, err := a.client.Gallery.UpdateEvent(ctx, *id, *name, description)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Event %d is now %q\n", event.ID, event.Name)
	return nil
}

func cmdEventDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags("event-delete")
	id := fs.Int64("id", 0, "event id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("id", *id); err != nil {
		return err
	}
	return a.client.Gallery.DeleteEvent(ctx, *id)
}

// openLink resolves link when given. An empty link resolves to nothing.
func openLink(ctx context.Context, a *app, link string) (*share.Resolved, error) {
	if strings.TrimSpace(link) == "" {
		return nil, nil
	}
	return a.client.Open(ctx, link)
}

func cmdAttach(ctx context.Context, a *app, args []string) error {
	fs := newFlags("attach")
	event := fs.Int64("event", 0, "event id")
	albums := fs.String("albums", "", "comma-separated album ids")
	link := fs.String("link", "", "share link that opened the event")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("event", *event); err != nil {
		return err
	}
	ids, err := parseIDs(*albums)
	if err != nil {
		return err
	}
	res, err := openLink(ctx, a, *link)
	if err != nil {
		return err
	}
	var g *grant.Grant
	if res != nil {
		g = &res.Grant
	}
	if err := a.client.Gallery.AttachAlbums(ctx, g, *event, ids); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Albums added.")
	return nil
}

func cmdDetach(ctx context.Context, a *app, args []string) error {
	fs := newFlags("detach")
	event := fs.Int64("event", 0, "event id")
	album := fs.Int64("album", 0, "album id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("event", *event); err != nil {
		return err
	}
	if err := requireID("album", *album); err != nil {
		return err
	}
	return a.client.Gallery.RemoveAlbum(ctx, nil, *event, *album)
}

func cmdShare(ctx context.Context, a *app, args []string) error {
	fs := newFlags("share")
	kind := fs.String("kind", "album", "album, photo or event")
	id := fs.Int64("id", 0, "resource id")
	canComment := fs.Bool("comment", false, "let guests comment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	k, err := grant.ParseKind(*kind)
	if err != nil {
		return err
	}
	if err := requireID("id", *id); err != nil {
		return err
	}
	link, err := a.client.Links.Create(ctx, k, *id, *canComment)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Share %d: %s\n", link.ID, share.PagePath(k, link.Grant.Token))
	return nil
}

func cmdRevoke(ctx context.Context, a *app, args []string) error {
	fs := newFlags("revoke")
	id := fs.Int64("id", 0, "share id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("id", *id); err != nil {
		return err
	}
	if err := a.client.Links.Revoke(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Link revoked.")
	return nil
}

func cmdRotate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("rotate")
	event := fs.Int64("event", 0, "event id")
	revokeOld := fs.Bool("revoke-old", false, "stop earlier links from working")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("event", *event); err != nil {
		return err
	}
	link, err := a.client.Links.RotateEventLink(ctx, *event, *revokeOld)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "New link %s\n", share.PagePath(grant.KindEvent, link.Grant.Token))
	return nil
}

// cmdOpen shows a share link the way a guest sees it. The visitor's own
// session, if any, is not used.
func cmdOpen(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return apperr.Validation("open takes exactly one link")
	}
	res, err := a.client.Open(ctx, args[0])
	if err != nil {
		return err
	}

	switch {
	case res.Album != nil:
		fmt.Fprintf(a.out, "Album %q\n", res.Album.Name)
	case res.Event != nil:
		fmt.Fprintf(a.out, "Event %q\n", res.Event.Name)
		if res.Event.Description != "" {
			fmt.Fprintln(a.out, res.Event.Description)
		}
		printAlbums(a.out, res.Albums)
	}
	photos := res.Photos
	if res.Photo != nil {
		photos = []resource.Photo{*res.Photo}
	}
	printPhotos(a.out, photos, func(p resource.Photo) string {
		u, err := a.client.Shares.MediaURL(p.Filepath, res.Grant.Token)
		if err != nil {
			return "-"
		}
		return u
	})
	if res.Grant.CanComment {
		fmt.Fprintln(a.out, "Guests may comment on these photos.")
	}
	return nil
}

func cmdComments(ctx context.Context, a *app, args []string) error {
	fs := newFlags("comments")
	photo := fs.Int64("photo", 0, "photo id")
	link := fs.String("link", "", "share link that shows the photo")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("photo", *photo); err != nil {
		return err
	}
	res, err := openLink(ctx, a, *link)
	if err != nil {
		return err
	}

	var comments []resource.Comment
	if res != nil && !a.client.Session.IsAuthenticated() {
		comments, err = a.client.Shares.Comments(ctx, res.Grant, *photo, res.Target(*photo))
	} else {
		comments, err = a.client.Gallery.Comments(ctx, *photo)
	}
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		fmt.Fprintln(a.out, "No comments.")
	}
	for _, c := range comments {
		fmt.Fprintf(a.out, "%6d  %s  %s: %s\n", c.ID, c.CreatedAt, c.Author, c.Content)
	}
	return nil
}

func cmdComment(ctx context.Context, a *app, args []string) error {
	fs := newFlags("comment")
	photo := fs.Int64("photo", 0, "photo id")
	link := fs.String("link", "", "share link that shows the photo")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("photo", *photo); err != nil {
		return err
	}
	res, err := openLink(ctx, a, *link)
	if err != nil {
		return err
	}
	var (
		g      *grant.Grant
		target *grant.Ref
	)
	if res != nil {
		g, target = &res.Grant, res.Target(*photo)
	}
	if err := a.client.Comment(ctx, g, *photo, target, strings.Join(fs.Args(), " ")); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Comment posted.")
	return nil
}

func cmdCommentDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags("uncomment")
	photo := fs.Int64("photo", 0, "photo id")
	id := fs.Int64("id", 0, "comment id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("photo", *photo); err != nil {
		return err
	}
	if err := requireID("id", *id); err != nil {
		return err
	}
	if err := a.client.Gallery.DeleteComment(ctx, *photo, *id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Comment deleted.")
	return nil
}

func cmdDashboard(ctx context.Context, a *app, _ []string) error {
	d, err := a.client.Gallery.Dashboard(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Storage: %.2f of %.2f GB\n", d.Storage.UsedGB, d.Storage.LimitGB)
	fmt.Fprintln(a.out, "Recent albums:")
	printAlbums(a.out, d.Recent)
	return nil
}
