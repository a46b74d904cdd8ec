// Package capability decides, before any call is made, whether the caller may
// perform an action. Everything here is pure; the server stays the real
// guarantee.
//
// Decision table:
//
//	caller           read          mutate         comment             share
//	Owner            Allow         Allow          Allow               Allow
//	Share-Guest      Allow*        Forbidden      Allow iff canComment Forbidden
//	Unauthenticated  RedirectLogin RedirectLogin  RedirectLogin       RedirectLogin
//
// (*) only the resource the share token resolved to.
package capability

import (
	"errors"
	"fmt"

	"pixshare/pkg/apperr"
	"pixshare/pkg/grant"
)

type Action int

const (
	ActionRead Action = iota
	ActionMutate
	ActionComment
	ActionShare
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionMutate:
		return "mutate"
	case ActionComment:
		return "comment"
	case ActionShare:
		return "share"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

type Decision int

const (
	Allow Decision = iota
	DenyRedirectLogin
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyRedirectLogin:
		return "redirect-login"
	case DenyForbidden:
		return "forbidden"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

type Caller int

const (
	CallerUnauthenticated Caller = iota
	CallerShareGuest
	CallerOwner
)

func (c Caller) String() string {
	switch c {
	case CallerUnauthenticated:
		return "unauthenticated"
	case CallerShareGuest:
		return "share-guest"
	case CallerOwner:
		return "owner"
	}
	return fmt.Sprintf("caller(%d)", int(c))
}

// Context is what the gate knows about the caller. Target, when set, is the
// resource the action applies to.
type Context struct {
	Authenticated bool
	Grant         *grant.Grant
	Target        *grant.Ref
}

// Classify puts a session ahead of a share token: an authenticated visitor on
// a share link is treated as an owner.
func Classify(ctx Context) Caller {
	switch {
	case ctx.Authenticated:
		return CallerOwner
	case ctx.Grant.Valid():
		return CallerShareGuest
	}
	return CallerUnauthenticated
}

func Check(action Action, ctx Context) Decision {
	switch Classify(ctx) {
	case CallerOwner:
		return Allow
	case CallerShareGuest:
		return checkGuest(action, ctx)
	}
	return DenyRedirectLogin
}

func checkGuest(action Action, ctx Context) Decision {
	switch action {
	case ActionRead, ActionComment:
		if ctx.Target != nil && !ctx.Grant.Covers(*ctx.Target) {
			return DenyForbidden
		}
		if action == ActionComment && !ctx.Grant.CanComment {
			return DenyForbidden
		}
		return Allow
	}
	return DenyForbidden
}

// Via names the credential a step must be satisfied by.
type Via int

const (
	ViaSession Via = iota
	ViaShare
)

type Step struct {
	Action Action
	Via    Via
	Target *grant.Ref
}

// Compose evaluates steps that each lean on one credential only, for flows
// that need a share token and a session at the same time. A step via the
// session ignores the grant; a step via the share ignores the session.
// Forbidden outranks a login redirect, since signing in cannot fix it.
func Compose(ctx Context, steps ...Step) Decision {
	out := Allow
	for _, s := range steps {
		c := Context{Target: s.Target}
		switch s.Via {
		case ViaSession:
			c.Authenticated = ctx.Authenticated
		case ViaShare:
			c.Grant = ctx.Grant
		}
		switch Check(s.Action, c) {
		case DenyForbidden:
			return DenyForbidden
		case DenyRedirectLogin:
			out = DenyRedirectLogin
		}
	}
	return out
}

// AttachToSharedEvent is the requirement for a visitor adding their own
// albums to an event they reached through a share link: the link must open the
// event and a session must back the change to their albums.
func AttachToSharedEvent(eventID int64) []Step {
	event := &grant.Ref{Kind: grant.KindEvent, ID: eventID}
	return []Step{
		{Action: ActionRead, Via: ViaShare, Target: event},
		{Action: ActionMutate, Via: ViaSession},
	}
}

// DeniedError reports a gate refusal. It matches apperr.ErrForbidden or
// apperr.ErrUnauthorized so callers handle it like the server's answer.
type DeniedError struct {
	Action   Action
	Decision Decision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s denied: %s", e.Action, e.Decision)
}

func (e *DeniedError) Is(target error) bool {
	switch e.Decision {
	case DenyForbidden:
		return target == apperr.ErrForbidden
	case DenyRedirectLogin:
		return target == apperr.ErrUnauthorized
	}
	return false
}

// Enforce turns a decision into an error, nil for Allow.
func Enforce(d Decision, action Action) error {
	if d == Allow {
		return nil
	}
	return &DeniedError{Action: action, Decision: d}
}

// IsLoginRedirect reports whether err asks the caller to send the user to the
// login entry point.
func IsLoginRedirect(err error) bool {
	var de *DeniedError
	if errors.As(err, &de) {
		return de.Decision == DenyRedirectLogin
	}
	return errors.Is(err, apperr.ErrUnauthorized)
}
