// Package session derives the "is authenticated" state from the credential
// store and keeps every subscriber in step with it, including changes made by
// other contexts sharing the store's backend.
package session

import (
	"context"
	"log/slog"
	"sync"

	"pixshare/pkg/apperr"
	"pixshare/pkg/claims"
	"pixshare/pkg/credential"
)

// Revoker ends the credential's server-side session.
type Revoker interface {
	Revoke(ctx context.Context, credential string) error
}

type Manager struct {
	store   *credential.Store
	revoker Revoker
	logger  *slog.Logger

	mu      sync.Mutex
	last    bool
	subs    map[int]func(bool)
	next    int
	unwatch func()
}

// New reads the credential before returning, so no caller can observe the
// manager in an unresolved state.
func New(store *credential.Store, revoker Revoker, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:   store,
		revoker: revoker,
		logger:  logger,
		subs:    make(map[int]func(bool)),
	}
	m.unwatch = store.Subscribe(m.reconcile)

	// Read only after subscribing, so a write racing New is either seen here
	// or reported to reconcile.
	m.mu.Lock()
	m.last = m.IsAuthenticated()
	m.mu.Unlock()
	return m
}

func (m *Manager) IsAuthenticated() bool {
	_, ok := m.store.Get()
	return ok
}

func (m *Manager) Credential() (string, bool) {
	return m.store.Get()
}

// Login stores token. An unusable token is logged and ignored.
func (m *Manager) Login(token string) {
	if err := m.store.Set(token); err != nil {
		m.logger.Warn("login", "error", err)
		return
	}
	m.reconcile()
}

// Logout clears the local credential, then asks the server to revoke it.
// Revocation failures are logged only; the local state is already gone.
func (m *Manager) Logout(ctx context.Context) {
	tok, ok := m.store.Get()
	m.Invalidate()

	if !ok || m.revoker == nil {
		return
	}
	if err := m.revoker.Revoke(ctx, tok); err != nil {
		m.logger.Warn("logout request failed; client state already cleared", "error", err)
	}
}

// Invalidate drops the credential without contacting the server.
func (m *Manager) Invalidate() {
	m.store.Clear()
	m.reconcile()
}

// Identity decodes the current credential for display.
func (m *Manager) Identity() (*claims.Claims, error) {
	tok, ok := m.store.Get()
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	return claims.Decode(tok)
}

// Subscribe registers fn for every authenticated/unauthenticated transition.
func (m *Manager) Subscribe(fn func(authenticated bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) Close() {
	if m.unwatch != nil {
		m.unwatch()
	}
}

// reconcile re-reads the store instead of trusting whatever triggered it.
func (m *Manager) reconcile() {
	m.mu.Lock()
	now := m.IsAuthenticated()
	if now == m.last {
		m.mu.Unlock()
		return
	}
	m.last = now
	fns := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	m.logger.Debug("session changed", "authenticated", now)
	for _, fn := range fns {
		fn(now)
	}
}
