package capability_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"pixshare/pkg/apperr"
	"pixshare/pkg/capability"
	"pixshare/pkg/grant"
)

var allActions = []capability.Action{
	capability.ActionRead,
	capability.ActionMutate,
	capability.ActionComment,
	capability.ActionShare,
}

func guest(canComment bool) *grant.Grant {
	return &grant.Grant{Token: "tok", Kind: grant.KindPhoto, ResourceID: 9, CanComment: canComment}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, capability.CallerUnauthenticated, capability.Classify(capability.Context{}))
	assert.Equal(t, capability.CallerUnauthenticated, capability.Classify(capability.Context{Grant: &grant.Grant{}}))
	assert.Equal(t, capability.CallerShareGuest, capability.Classify(capability.Context{Grant: guest(false)}))
	assert.Equal(t, capability.CallerOwner, capability.Classify(capability.Context{Authenticated: true, Grant: guest(false)}))
}

func TestCheck_Owner(t *testing.T) {
	for _, a := range allActions {
		assert.Equal(t, capability.Allow, capability.Check(a, capability.Context{Authenticated: true}), a.String())
	}
}

func TestCheck_Unauthenticated(t *testing.T) {
	for _, a := range allActions {
		assert.Equal(t, capability.DenyRedirectLogin, capability.Check(a, capability.Context{}), a.String())
	}
}

func TestCheck_ShareGuest(t *testing.T) {
	for _, canComment := range []bool{true, false} {
		ctx := capability.Context{Grant: guest(canComment)}
		assert.Equal(t, capability.DenyForbidden, capability.Check(capability.ActionMutate, ctx))
		assert.Equal(t, capability.DenyForbidden, capability.Check(capability.ActionShare, ctx))
		assert.Equal(t, capability.Allow, capability.Check(capability.ActionRead, ctx))
	}

	assert.Equal(t, capability.Allow, capability.Check(capability.ActionComment, capability.Context{Grant: guest(true)}))
	assert.Equal(t, capability.DenyForbidden, capability.Check(capability.ActionComment, capability.Context{Grant: guest(false)}))
}

func TestCheck_ShareGuestReadLimitedToResolvedResource(t *testing.T) {
	ctx := capability.Context{
		Grant:  guest(false),
		Target: &grant.Ref{Kind: grant.KindPhoto, ID: 10},
	}
	assert.Equal(t, capability.DenyForbidden, capability.Check(capability.ActionRead, ctx))

	ctx.Target = &grant.Ref{Kind: grant.KindPhoto, ID: 9}
	assert.Equal(t, capability.Allow, capability.Check(capability.ActionRead, ctx))
}

func TestCheck_ShareGuestCommentLimitedToResolvedResource(t *testing.T) {
	ctx := capability.Context{
		Grant:  guest(true),
		Target: &grant.Ref{Kind: grant.KindPhoto, ID: 10},
	}
	assert.Equal(t, capability.DenyForbidden, capability.Check(capability.ActionComment, ctx))

	ctx.Target = &grant.Ref{Kind: grant.KindPhoto, ID: 9}
	assert.Equal(t, capability.Allow, capability.Check(capability.ActionComment, ctx))

	ctx.Grant = guest(false)
	assert.Equal(t, capability.DenyForbidden, capability.Check(capability.ActionComment, ctx))
}

func TestCompose_AttachToSharedEvent(t *testing.T) {
	eventGrant := &grant.Grant{Token: "tok", Kind: grant.KindEvent, ResourceID: 3}
	steps := capability.AttachToSharedEvent(3)

	tests := []struct {
		name string
		ctx  capability.Context
		want capability.Decision
	}{
		{"share and session", capability.Context{Authenticated: true, Grant: eventGrant}, capability.Allow},
		{"share only", capability.Context{Grant: eventGrant}, capability.DenyRedirectLogin},
		{"session only", capability.Context{Authenticated: true}, capability.DenyRedirectLogin},
		{"neither", capability.Context{}, capability.DenyRedirectLogin},
		{
			"share for another event",
			capability.Context{Authenticated: true, Grant: &grant.Grant{Token: "tok", Kind: grant.KindEvent, ResourceID: 4}},
			capability.DenyForbidden,
		},
		{
			"album share cannot open an event",
			capability.Context{Grant: &grant.Grant{Token: "tok", Kind: grant.KindAlbum, ResourceID: 3}},
			capability.DenyForbidden,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, capability.Compose(test.ctx, steps...))
		})
	}
}

func TestEnforce(t *testing.T) {
	assert.NoError(t, capability.Enforce(capability.Allow, capability.ActionRead))

	err := capability.Enforce(capability.DenyForbidden, capability.ActionMutate)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.False(t, capability.IsLoginRedirect(err))
	assert.Equal(t, "mutate denied: forbidden", err.Error())

	err = capability.Enforce(capability.DenyRedirectLogin, capability.ActionShare)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.True(t, capability.IsLoginRedirect(err))

	assert.True(t, capability.IsLoginRedirect(&apperr.HTTPError{Status: 401, Kind: apperr.ErrUnauthorized}))
	assert.False(t, capability.IsLoginRedirect(errors.New("boom")))
}
