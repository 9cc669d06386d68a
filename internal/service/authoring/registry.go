package authoring

import (
	"sort"
	"sync"
	"time"

	"github.com/zhouzirui/sirius-report/backend/internal/model/chat"
)

// Registry 按 ID 管理会话，替代进程级单例。
type Registry struct {
	p   *Pipeline
	ttl time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. ttl <= 0 disables sweeping.
func NewRegistry(p *Pipeline, ttl time.Duration) *Registry {
	return &Registry{
		p:        p,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Pipeline returns the pipeline sessions are created from.
func (r *Registry) Pipeline() *Pipeline {
	return r.p
}

// Create registers a new idle session.
func (r *Registry) Create() *Session {
	s := r.p.NewSession()
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session and cancels whatever it is doing.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Reset()
	return nil
}

// List returns snapshots of all sessions, most recently active first.
func (r *Registry) List() []chat.Snapshot {
	r.mu.RLock()
	out := make([]chat.Snapshot, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Sweep drops sessions inactive for longer than the TTL. Sessions with a
// model call in flight are kept.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.State().Busy() {
			continue
		}
		if now.Sub(s.lastActivity()) > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
