// Package credential persists the owner's bearer token.
//
// A Store is one browsing context's view of a Backend. Several stores may share
// a backend (tabs of one profile); each sees the others' writes through
// Subscribe.
package credential

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pixshare/pkg/apperr"
)

const (
	// Key is the storage key holding the credential.
	Key = "token"

	sentinel = "undefined"
)

// Backend is raw key/value storage with change notification.
type Backend interface {
	Load(ctx context.Context, key string) (string, bool, error)
	Save(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Watch calls fn with the key of every change, whichever context made it.
	Watch(fn func(key string)) (stop func())
}

type Store struct {
	backend Backend
	logger  *slog.Logger
}

func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// Usable reports whether s can stand for a credential. Empty and the
// "undefined" sentinel are treated as absent.
func Usable(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != sentinel
}

// Get returns the stored credential, or false when none is usable.
func (s *Store) Get() (string, bool) {
	v, ok, err := s.backend.Load(context.Background(), Key)
	if err != nil {
		s.logger.Warn("credential load", "error", err)
		return "", false
	}
	if !ok || !Usable(v) {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Set stores token with surrounding whitespace removed.
func (s *Store) Set(token string) error {
	if !Usable(token) {
		return fmt.Errorf("%w: %q", apperr.ErrInvalidCredential, token)
	}
	token = strings.TrimSpace(token)
	if err := s.backend.Save(context.Background(), Key, token); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Clear never fails; backend errors are logged.
func (s *Store) Clear() {
	if err := s.backend.Delete(context.Background(), Key); err != nil {
		s.logger.Error("credential clear", "error", err)
	}
}

// Subscribe calls fn after every change to the credential key.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	return s.backend.Watch(func(key string) {
		if key == Key {
			fn()
		}
	})
}
