package svc

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kosheo/backtestcore/internal/optimize"
)

// runningSession tracks one in-flight or completed optimizer run plus its
// subscribers, so both the polling GET endpoint and the websocket stream
// can observe the same progress.
type runningSession struct {
	mu       sync.Mutex
	session  optimize.Session
	cancel   context.CancelFunc
	canceled bool
	subs     []chan optimize.Progress
}

func (r *runningSession) subscribe() chan optimize.Progress {
	ch := make(chan optimize.Progress, 16)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session.Status != optimize.StatusRunning {
		// finish already ran and will not close this channel; close it here
		// so a late subscriber still sees the session end.
		close(ch)
		return ch
	}
	r.subs = append(r.subs, ch)
	return ch
}

func (r *runningSession) publish(p optimize.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

func (r *runningSession) finish(s optimize.Session) {
	r.mu.Lock()
	r.session = s
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()
	for _, ch := range subs {
		close(ch)
	}
}

func (r *runningSession) snapshot() optimize.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// cancelToken adapts runningSession's cancellation flag to
// optimize.CancelToken.
type cancelToken struct{ r *runningSession }

func (c cancelToken) Cancelled() bool {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	return c.r.canceled
}

// sessionStore is the process-local registry of optimizer sessions.
// backtestsvc runs as a single instance, so an in-memory map is sufficient
// (the spec scopes out distributed orchestration).
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*runningSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*runningSession)}
}

func (s *sessionStore) create() (string, *runningSession) {
	id := uuid.NewString()
	rs := &runningSession{session: optimize.Session{SessionID: id, Status: optimize.StatusRunning}}
	s.mu.Lock()
	s.sessions[id] = rs
	s.mu.Unlock()
	return id, rs
}

func (s *sessionStore) get(id string) (*runningSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.sessions[id]
	return rs, ok
}
