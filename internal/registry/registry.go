// Package registry tracks in-flight sandbox sessions. It owns the only
// mutable session table in the process; all access goes through its atomic
// operations and the lock is never held across I/O.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Mode says how a session's sandbox is being used.
type Mode string

const (
	ModeScript Mode = "script"
	ModeTest   Mode = "test"
)

// Session binds a session id to a sandbox container. The container's
// lifecycle is owned by the runtime; the registry only borrows the handle to
// issue stop/remove at reclaim time.
type Session struct {
	ID          string
	ContainerID string
	Mode        Mode
	CreatedAt   time.Time
}

// Age returns how long the session has existed.
func (s Session) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

type Registry struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func New() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Create records a session. Ids are caller-generated UUIDs, so a duplicate
// means a caller bug; Create panics rather than silently overwriting.
func (r *Registry) Create(sess Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[sess.ID]; exists {
		panic(fmt.Sprintf("registry: duplicate session id %s", sess.ID))
	}
	r.sessions[sess.ID] = sess
}

func (r *Registry) Get(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// Delete removes and returns a session. Deleting an unknown id returns
// ErrNotFound, which makes concurrent double-delete a harmless no-op.
func (r *Registry) Delete(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.sessions, id)
	return sess, nil
}

// Snapshot returns a point-in-time copy of all sessions, so callers can
// iterate without racing concurrent mutation.
func (r *Registry) Snapshot() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
