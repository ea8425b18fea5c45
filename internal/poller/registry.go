package poller

import (
	"sync"
	"time"
)

// session is the in-process bookkeeping for one active reconciliation loop.
// It is not persisted; a process restart abandons in-flight sessions until
// a vendor webhook catches the call up.
type session struct {
	providerCallID string
	callID         string
	orgID          string
	startedAt      time.Time

	// mu guards the counters, which the tick goroutine writes and Stats
	// reads concurrently.
	mu                sync.Mutex
	attempts          int
	consecutiveErrors int

	stop chan struct{}
}

// registry is the keyed table of active sessions. It is owned by a Poller
// instance (no package-level state) so independent pollers can coexist in
// one process, e.g. in tests.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{sessions: map[string]*session{}}
}

// add registers a session unless one is already active for the provider
// call id. Returns false when a session already exists (idempotent start).
func (r *registry) add(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.providerCallID]; ok {
		return false
	}
	r.sessions[s.providerCallID] = s
	return true
}

// remove deregisters and returns the session, or nil if it was already
// removed. The caller that receives a non-nil session owns closing it, so
// the stop channel is closed exactly once.
func (r *registry) remove(providerCallID string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[providerCallID]
	if !ok {
		return nil
	}
	delete(r.sessions, providerCallID)
	return s
}

func (r *registry) get(providerCallID string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[providerCallID]
}

func (r *registry) all() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
