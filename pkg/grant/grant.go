package grant

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindAlbum Kind = "album"
	KindEvent Kind = "event"
	KindPhoto Kind = "photo"
)

var ErrUnknownKind = errors.New("unknown resource kind")

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindAlbum, KindEvent, KindPhoto:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

// Ref points at one resource. Parent is set for resources reached through a
// container, e.g. a photo listed inside a shared event.
type Ref struct {
	Kind   Kind
	ID     int64
	Parent *Ref
}

// Grant is what a share token unlocks. CanComment comes from the server with
// the resolved resource; the client never sets it.
type Grant struct {
	Token      string `json:"token"`
	Kind       Kind   `json:"kind"`
	ResourceID int64  `json:"resource_id"`
	CanComment bool   `json:"can_comment"`
}

func (g *Grant) Valid() bool {
	return g != nil && g.Token != "" && g.Kind.Valid()
}

func (g *Grant) Ref() Ref {
	return Ref{Kind: g.Kind, ID: g.ResourceID}
}

// Covers reports whether the grant's resource is ref itself or one of ref's
// containers.
func (g *Grant) Covers(ref Ref) bool {
	if !g.Valid() {
		return false
	}
	for r := &ref; r != nil; r = r.Parent {
		if r.Kind == g.Kind && r.ID == g.ResourceID {
			return true
		}
	}
	return false
}
