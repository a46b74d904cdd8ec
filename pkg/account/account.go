// Package account signs owners in and out against /auth and edits the
// signed-in owner's settings under /account.
package account

import (
	"context"
	"net/http"
	"net/mail"
	"strings"

	"pixshare/pkg/apperr"
	"pixshare/pkg/capability"
	"pixshare/pkg/dispatcher"
	"pixshare/pkg/resource"
)

const minPasswordLen = 6

type Sender interface {
	Send(ctx context.Context, req dispatcher.Request, out any) error
}

type CredentialSource interface {
	Credential() (string, bool)
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func() (string, bool)

func (f CredentialFunc) Credential() (string, bool) { return f() }

type Client struct {
	sender Sender
	creds  CredentialSource
}

// New builds a client. creds supplies the session credential for the
// settings calls; it may be nil when only Login, Register and Revoke are
// used.
func New(sender Sender, creds CredentialSource) *Client {
	return &Client{sender: sender, creds: creds}
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login exchanges email and password for a bearer credential. The token is
// returned as sent; callers hand it to the session, which rejects unusable
// values.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", apperr.Validation("email and password are required")
	}

	var out tokenResponse
	err := c.sender.Send(ctx, dispatcher.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   map[string]string{"email": email, "password": password},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

// Register creates an account. The server signs the new owner in, so a token
// comes back as with Login.
func (c *Client) Register(ctx context.Context, name, email, password string) (string, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	switch {
	case name == "" || email == "" || password == "":
		return "", apperr.Validation("name, email and password are required")
	case len(password) < minPasswordLen:
		return "", apperr.Validation("password must be at least 6 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperr.Validation("email address is not valid")
	}

	var out tokenResponse
	err := c.sender.Send(ctx, dispatcher.Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   map[string]string{"name": name, "email": email, "password": password},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

// Revoke ends the server-side session behind credential. The server treats
// repeated calls as success.
func (c *Client) Revoke(ctx context.Context, credential string) error {
	return c.sender.Send(ctx, dispatcher.Request{
		Method:     http.MethodPost,
		Path:       "/auth/logout",
		Credential: credential,
	}, nil)
}

// Profile reads the signed-in owner's account.
func (c *Client) Profile(ctx context.Context) (*resource.Profile, error) {
	var out resource.Profile
	if err := c.send(ctx, capability.ActionRead, dispatcher.Request{Method: http.MethodGet, Path: "/account/profile"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile renames the owner and changes their sign-in email.
func (c *Client) UpdateProfile(ctx context.Context, name, email string) (*resource.Profile, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("email address is not valid")
	}

	var out struct {
		Profile resource.Profile `json:"profile"`
	}
	err := c.send(ctx, capability.ActionMutate, dispatcher.Request{
		Method: http.MethodPut,
		Path:   "/account/profile",
		Body:   map[string]string{"name": name, "email": email},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Profile, nil
}

// ChangePassword replaces the owner's password. The server checks current.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	switch {
	case current == "" || next == "":
		return apperr.Validation("current and new password are required")
	case len(next) < minPasswordLen:
		return apperr.Validation("new password must be at least 6 characters")
	}
	return c.send(ctx, capability.ActionMutate, dispatcher.Request{
		Method: http.MethodPut,
		Path:   "/account/password",
		Body:   map[string]string{"current": current, "new": next},
	}, nil)
}

// send attaches the session credential once the gate allows action.
func (c *Client) send(ctx context.Context, action capability.Action, req dispatcher.Request, out any) error {
	var (
		tok string
		ok  bool
	)
	if c.creds != nil {
		tok, ok = c.creds.Credential()
	}
	if err := capability.Enforce(capability.Check(action, capability.Context{Authenticated: ok}), action); err != nil {
		return err
	}
	req.Credential = tok
	return c.sender.Send(ctx, req, out)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
