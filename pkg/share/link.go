package share

import (
	"fmt"
	"net/url"
	"strings"

	"pixshare/pkg/apperr"
	"pixshare/pkg/grant"
)

// PagePath is the front-end route for a share link.
func PagePath(kind grant.Kind, token string) string {
	return "/shared/" + string(kind) + "/" + url.PathEscape(token)
}

// ParseLink extracts the token and kind from a share link. It accepts the
// page form /shared/{kind}/{token} and the API form [/api]/s/{token}/{kind},
// either as a bare path or a full URL.
func ParseLink(raw string) (token string, kind grant.Kind, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", apperr.Validation("malformed share link")
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && parts[0] == "api" {
		parts = parts[1:]
	}
	if len(parts) != 3 {
		return "", "", apperr.Validation(fmt.Sprintf("not a share link: %q", raw))
	}

	var kindPart string
	switch parts[0] {
	case "shared":
		kindPart, token = parts[1], parts[2]
	case "s":
		token, kindPart = parts[1], parts[2]
	default:
		return "", "", apperr.Validation(fmt.Sprintf("not a share link: %q", raw))
	}

	kind, err = grant.ParseKind(kindPart)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if token == "" {
		return "", "", apperr.Validation("share link has no token")
	}
	return token, kind, nil
}
