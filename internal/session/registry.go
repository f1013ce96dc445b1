package session

import "sync"

// Registry tracks the live sessions of one client by token. Only the
// Controller mutates it; everything else gets read-only lookups. It is
// injected rather than process-global so each test builds its own.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Get returns the session registered under token, or nil.
func (r *Registry) Get(token string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[token]
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Tokens returns the tokens of all live sessions.
func (r *Registry) Tokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for token := range r.sessions {
		out = append(out, token)
	}
	return out
}

func (r *Registry) add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Token] = s
}

// remove evicts and returns the session under token, or nil if it was
// already gone. The single atomic eviction is what lets a user-initiated
// close and a spontaneous remote close converge on one teardown.
func (r *Registry) remove(token string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[token]
	delete(r.sessions, token)
	return s
}
