package vars

import (
	"context"
	"sync"
)

// CancelManager owns the single revocable cancellation handle of one
// document view. Exactly one handle is live at any time; Cancel revokes it
// and atomically installs a fresh one, so fetches issued after Cancel
// returns proceed unaffected. One manager exists per view, never shared
// across views.
type CancelManager struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCancelManager returns a manager with its first handle already live.
func NewCancelManager() *CancelManager {
	m := &CancelManager{}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Cancel revokes the current handle, signalling in-flight provider queries
// holding it to abandon work, and installs a replacement. It never blocks
// waiting for that work to actually stop, and it cannot fail.
func (m *CancelManager) Cancel() {
	m.mu.Lock()
	revoke := m.cancel
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	revoke()
}

// Current returns the handle live at the moment of the call. A revoked
// handle is never returned once its replacement is installed.
func (m *CancelManager) Current() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx
}

// Bind derives a context from parent that is additionally cancelled when
// the handle current at the moment of the call is revoked. Each provider
// query binds the handle at issue time, so a Cancel between two queries of
// one fetch affects only the queries not yet issued. The returned release
// func must be called once the query is done to detach from the handle.
func (m *CancelManager) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(m.Current(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
