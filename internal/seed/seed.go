// Package seed fills an empty stub database from a YAML fixture file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"pixshare/pkg/grant"
	"pixshare/pkg/library"
	"pixshare/pkg/user"
)

type File struct {
	Users []User `yaml:"users"`
}

type User struct {
	Name     string  `yaml:"name"`
	Email    string  `yaml:"email"`
	Password string  `yaml:"password"`
	Albums   []Album `yaml:"albums"`
	Events   []Event `yaml:"events"`
	Shares   []Share `yaml:"shares"`
}

type Album struct {
	Name string `yaml:"name"`
}

type Event struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Albums      []string `yaml:"albums"`
}

// Share names its target by album or event name.
type Share struct {
	Kind       string `yaml:"kind"`
	Target     string `yaml:"target"`
	CanComment bool   `yaml:"can_comment"`
}

// Issued is a share link created while seeding.
type Issued struct {
	Email string
	Kind  grant.Kind
	Name  string
	Token string
}

func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for i, u := range f.Users {
		if u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("seed user %d: email and password are required", i)
		}
		for _, s := range u.Shares {
			kind, err := grant.ParseKind(s.Kind)
			if err != nil {
				return nil, fmt.Errorf("seed user %s: %w", u.Email, err)
			}
			if kind == grant.KindPhoto {
				return nil, fmt.Errorf("seed user %s: photo shares cannot be seeded", u.Email)
			}
		}
	}
	return &f, nil
}

// Apply creates the fixture's users with their albums, events and links.
// Users that already exist are skipped whole, so applying twice is harmless.
func Apply(ctx context.Context, f *File, users user.ServiceInterface, lib *library.SQLRepo, logger *slog.Logger) ([]Issued, error) {
	var issued []Issued
	for _, su := range f.Users {
		u, sessionID, err := users.Register(ctx, su.Name, su.Email, su.Password)
		if errors.Is(err, user.ErrExists) {
			logger.Info("seed user exists, skipping", "email", su.Email)
			continue
		}
		if err != nil {
			return issued, fmt.Errorf("seed user %s: %w", su.Email, err)
		}
		if err := users.Logout(ctx, sessionID); err != nil {
			return issued, err
		}

		albums := make(map[string]int64, len(su.Albums))
		for _, a := range su.Albums {
			created, err := lib.CreateAlbum(ctx, u.ID, a.Name)
			if err != nil {
				return issued, fmt.Errorf("seed album %q: %w", a.Name, err)
			}
			albums[a.Name] = created.ID
		}

		events := make(map[string]int64, len(su.Events))
		for _, e := range su.Events {
			created, err := lib.CreateEvent(ctx, u.ID, e.Name, e.Description)
			if err != nil {
				return issued, fmt.Errorf("seed event %q: %w", e.Name, err)
			}
			events[e.Name] = created.ID
			issued = append(issued, Issued{Email: u.Email, Kind: grant.KindEvent, Name: e.Name, Token: created.ShareID})

			ids := make([]int64, 0, len(e.Albums))
			for _, name := range e.Albums {
				id, ok := albums[name]
				if !ok {
					return issued, fmt.Errorf("seed event %q: unknown album %q", e.Name, name)
				}
				ids = append(ids, id)
			}
			if err := lib.AttachAlbums(ctx, created.ID, ids); err != nil {
				return issued, err
			}
		}

		for _, s := range su.Shares {
			kind := grant.Kind(s.Kind)
			targets := albums
			if kind == grant.KindEvent {
				targets = events
			}
			id, ok := targets[s.Target]
			if !ok {
				return issued, fmt.Errorf("seed share: unknown %s %q", kind, s.Target)
			}
			share, err := lib.CreateShare(ctx, u.ID, kind, id, s.CanComment)
			if err != nil {
				return issued, err
			}
			issued = append(issued, Issued{Email: u.Email, Kind: kind, Name: s.Target, Token: share.Token})
		}
		logger.Info("seeded user", "email", u.Email, "albums", len(albums), "events", len(events))
	}
	return issued, nil
}
