// Package view guards page state against responses that arrive after the
// page went away.
package view

import (
	"context"
	"sync"
)

// Mount is the liveness flag of one mounted view. The zero value is not
// mounted; use NewMount.
type Mount struct {
	mu      sync.Mutex
	mounted bool
	cancel  context.CancelFunc
	ctx     context.Context
}

func NewMount(parent context.Context) *Mount {
	ctx, cancel := context.WithCancel(parent)
	return &Mount{mounted: true, ctx: ctx, cancel: cancel}
}

// Context is cancelled on Unmount. Requests issued for the view should use it.
func (m *Mount) Context() context.Context {
	return m.ctx
}

func (m *Mount) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// Unmount marks the view gone. After it returns no Apply runs its update.
func (m *Mount) Unmount() {
	m.mu.Lock()
	m.mounted = false
	m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
}

// Apply runs update if the view is still mounted and reports whether it ran.
// Unmount waits for a running update to finish.
func (m *Mount) Apply(update func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return false
	}
	update()
	return true
}

// Load fetches with the view's context and hands the result to apply unless
// the view unmounted in the meantime. Errors are returned only while mounted;
// a late failure is dropped like a late success.
func Load[T any](m *Mount, fetch func(ctx context.Context) (T, error), apply func(T)) error {
	v, err := fetch(m.Context())
	var out error
	m.Apply(func() {
		if err != nil {
			out = err
			return
		}
		apply(v)
	})
	return out
}
