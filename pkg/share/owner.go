package share

import (
	"context"
	"net/http"
	"strconv"

	"pixshare/pkg/capability"
	"pixshare/pkg/dispatcher"
	"pixshare/pkg/grant"
	"pixshare/pkg/resource"
)

// CredentialSource yields the owner's bearer credential.
type CredentialSource interface {
	Credential() (string, bool)
}

// Link is a share link issued to the owner.
type Link struct {
	ID    int64
	Grant grant.Grant
}

// Owner issues and withdraws share links. Every call needs a session.
type Owner struct {
	sender Sender
	creds  CredentialSource
}

func NewOwner(sender Sender, creds CredentialSource) *Owner {
	return &Owner{sender: sender, creds: creds}
}

func (o *Owner) credential() (string, error) {
	tok, ok := o.creds.Credential()
	decision := capability.Check(capability.ActionShare, capability.Context{Authenticated: ok})
	if err := capability.Enforce(decision, capability.ActionShare); err != nil {
		return "", err
	}
	return tok, nil
}

// Create issues a new link for one of the owner's resources.
func (o *Owner) Create(ctx context.Context, kind grant.Kind, id int64, canComment bool) (*Link, error) {
	if _, err := grant.ParseKind(string(kind)); err != nil {
		return nil, err
	}
	tok, err := o.credential()
	if err != nil {
		return nil, err
	}

	var out struct {
		Share resource.Share `json:"share"`
	}
	err = o.sender.Send(ctx, dispatcher.Request{
		Method:     http.MethodPost,
		Path:       "/share/" + string(kind) + "/" + strconv.FormatInt(id, 10),
		Credential: tok,
		Body:       map[string]bool{"can_comment": canComment},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &Link{
		ID: out.Share.ID,
		Grant: grant.Grant{
			Token:      out.Share.Token,
			Kind:       kind,
			ResourceID: id,
			CanComment: out.Share.CanComment,
		},
	}, nil
}

// Revoke withdraws a link by its share id.
func (o *Owner) Revoke(ctx context.Context, shareID int64) error {
	tok, err := o.credential()
	if err != nil {
		return err
	}
	return o.sender.Send(ctx, dispatcher.Request{
		Method:     http.MethodDelete,
		Path:       "/share/" + strconv.FormatInt(shareID, 10),
		Credential: tok,
	}, nil)
}

// RotateEventLink replaces an event's public link. Earlier links keep
// working unless revokeOld is set.
func (o *Owner) RotateEventLink(ctx context.Context, eventID int64, revokeOld bool) (*Link, error) {
	tok, err := o.credential()
	if err != nil {
		return nil, err
	}

	var out struct {
		ShareID string         `json:"shareId"`
		Share   resource.Share `json:"share"`
	}
	err = o.sender.Send(ctx, dispatcher.Request{
		Method:     http.MethodPost,
		Path:       "/events/" + strconv.FormatInt(eventID, 10) + "/rotate-link",
		Credential: tok,
		Body:       map[string]bool{"revoke_old": revokeOld},
	}, &out)
	if err != nil {
		return nil, err
	}

	token := out.Share.Token
	if token == "" {
		token = out.ShareID
	}
	return &Link{
		ID:    out.Share.ID,
		Grant: grant.Grant{Token: token, Kind: grant.KindEvent, ResourceID: eventID},
	}, nil
}
