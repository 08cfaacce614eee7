package filesync

import (
	"context"
	"sync"
)

// handleManager owns the live Directory and the backend it came from. When
// the handle is invalidated the next Current call re-acquires it silently
// through the owning backend.
type handleManager struct {
	mu      sync.Mutex
	backend StorageBackend
	dir     *Directory
}

// Acquire opens a directory from b and, on success, replaces the current
// handle. A failed or canceled open leaves the previous handle in place.
func (m *handleManager) Acquire(ctx context.Context, b StorageBackend) (*Directory, error) {
	dir, err := b.Open(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.backend = b
	m.dir = dir
	m.mu.Unlock()
	return dir, nil
}

// Current returns the live handle, reopening it if it was invalidated.
func (m *handleManager) Current(ctx context.Context) (*Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dir != nil {
		return m.dir, nil
	}
	if m.backend == nil {
		return nil, ErrNotSetup
	}
	dir, err := m.backend.Reopen(ctx)
	if err != nil {
		return nil, err
	}
	m.dir = dir
	return dir, nil
}

// Invalidate drops the handle but remembers the backend.
func (m *handleManager) Invalidate() {
	m.mu.Lock()
	m.dir = nil
	m.mu.Unlock()
}

// Release forgets both handle and backend.
func (m *handleManager) Release() {
	m.mu.Lock()
	if u, ok := m.backend.(*UserSelectedBackend); ok {
		u.Forget()
	}
	m.backend = nil
	m.dir = nil
	m.mu.Unlock()
}

// Kind reports the owning backend, or KindNone.
func (m *handleManager) Kind() BackendKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backend == nil {
		return KindNone
	}
	return m.backend.Kind()
}

// Live reports whether a handle is currently held.
func (m *handleManager) Live() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir != nil
}
