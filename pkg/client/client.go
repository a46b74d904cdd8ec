// Package client wires the access core together: one dispatcher, one session
// and the resource clients that share them.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"pixshare/internal/config"
	"pixshare/pkg/account"
	"pixshare/pkg/apperr"
	"pixshare/pkg/capability"
	"pixshare/pkg/credential"
	"pixshare/pkg/dispatcher"
	"pixshare/pkg/gallery"
	"pixshare/pkg/grant"
	"pixshare/pkg/session"
	"pixshare/pkg/share"
)

// Navigator sends the user to the login entry point.
type Navigator interface {
	RedirectLogin()
}

type NavigatorFunc func()

func (f NavigatorFunc) RedirectLogin() { f() }

type Client struct {
	Session *session.Manager
	Account *account.Client
	Shares  *share.Resolver
	Links   *share.Owner
	Gallery *gallery.Client

	logger *slog.Logger
}

// New builds a client over backend. When the server rejects the session
// credential, the session is dropped and nav is told to show the login page.
// A rejection of a credential that is no longer the stored one changes
// nothing; the failed call still returns apperr.ErrUnauthorized.
func New(cfg *config.Client, backend credential.Backend, nav Navigator, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{logger: logger}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	d, err := dispatcher.New(cfg.APIBaseURL,
		dispatcher.WithHTTPClient(httpClient),
		dispatcher.WithLogger(logger),
		dispatcher.WithUnauthorizedHandler(func(rejected string) {
			// A late 401 for a credential since replaced must not sign the
			// newer session out.
			if current, ok := c.Session.Credential(); !ok || current != rejected {
				logger.Debug("ignoring rejection of a replaced credential")
				return
			}
			c.Session.Invalidate()
			if nav != nil {
				nav.RedirectLogin()
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	media := cfg.MediaBaseURL
	if media == "" {
		media = share.MediaBase(d.BaseURL())
	}
	c.Shares, err = share.NewResolver(d, media, logger)
	if err != nil {
		return nil, err
	}

	c.Account = account.New(d, account.CredentialFunc(func() (string, bool) {
		return c.Session.Credential()
	}))
	c.Session = session.New(credential.NewStore(backend, logger), c.Account, logger)
	c.Links = share.NewOwner(d, c.Session)
	c.Gallery = gallery.New(d, c.Session, logger)
	return c, nil
}

// Login signs in and stores the credential. A response without a usable
// token leaves the session signed out and fails with
// apperr.ErrInvalidCredential.
func (c *Client) Login(ctx context.Context, email, password string) error {
	tok, err := c.Account.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return c.adopt(tok)
}

func (c *Client) Register(ctx context.Context, name, email, password string) error {
	tok, err := c.Account.Register(ctx, name, email, password)
	if err != nil {
		return err
	}
	return c.adopt(tok)
}

func (c *Client) adopt(tok string) error {
	c.Session.Login(tok)
	if !c.Session.IsAuthenticated() {
		return fmt.Errorf("%w: server returned no usable token", apperr.ErrInvalidCredential)
	}
	return nil
}

func (c *Client) Logout(ctx context.Context) {
	c.Session.Logout(ctx)
}

// Check runs the capability gate against the current session.
func (c *Client) Check(action capability.Action, g *grant.Grant, target *grant.Ref) capability.Decision {
	return capability.Check(action, capability.Context{
		Authenticated: c.Session.IsAuthenticated(),
		Grant:         g,
		Target:        target,
	})
}

// Open resolves a share link given in any form ParseLink accepts.
func (c *Client) Open(ctx context.Context, link string) (*share.Resolved, error) {
	token, kind, err := share.ParseLink(link)
	if err != nil {
		return nil, err
	}
	return c.Shares.Resolve(ctx, token, kind)
}

// Comment posts on a shared photo. A signed-in visitor comments as themselves
// through the owner path; anyone else needs a grant that allows comments and,
// when target is given, reaches the photo.
func (c *Client) Comment(ctx context.Context, g *grant.Grant, photoID int64, target *grant.Ref, body string) error {
	if c.Session.IsAuthenticated() {
		_, err := c.Gallery.PostComment(ctx, photoID, body)
		return err
	}
	if g == nil {
		return capability.Enforce(capability.DenyRedirectLogin, capability.ActionComment)
	}
	_, err := c.Shares.PostComment(ctx, *g, photoID, target, body)
	return err
}

func (c *Client) Close() {
	c.Session.Close()
}
