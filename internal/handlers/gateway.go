// Package handlers implements the gateway's HTTP API: the handshake that
// authorizes a terminal session, the WebSocket endpoint that relays it,
// and management endpoints for live sessions.
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/termgate/termgate/internal/grant"
)

// Gateway bundles the shared state the terminal handlers work against.
type Gateway struct {
	Grants  *grant.Store
	Tracker *Tracker
}

func NewGateway(grants *grant.Store) *Gateway {
	return &Gateway{
		Grants:  grants,
		Tracker: NewTracker(),
	}
}

// Relay describes one live WebSocket-to-shell relay.
type Relay struct {
	Token     string    `json:"token"`
	DeviceID  string    `json:"device_id"`
	Username  string    `json:"username"`
	StartedAt time.Time `json:"started_at"`

	cancel context.CancelFunc
}

// Tracker indexes live relays by token so they can be listed and force
// closed through the API.
type Tracker struct {
	mu     sync.RWMutex
	relays map[string]*Relay
}

func NewTracker() *Tracker {
	return &Tracker{relays: make(map[string]*Relay)}
}

func (t *Tracker) add(r *Relay) {
	t.mu.Lock()
	t.relays[r.Token] = r
	t.mu.Unlock()
}

func (t *Tracker) remove(token string) {
	t.mu.Lock()
	delete(t.relays, token)
	t.mu.Unlock()
}

// List returns a snapshot of live relays.
func (t *Tracker) List() []Relay {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Relay, 0, len(t.relays))
	for _, r := range t.relays {
		out = append(out, *r)
	}
	return out
}

// Close cancels the relay for token. It reports whether a relay was found.
func (t *Tracker) Close(token string) bool {
	t.mu.RLock()
	r, ok := t.relays[token]
	t.mu.RUnlock()
	if ok {
		r.cancel()
	}
	return ok
}

// CloseAll cancels every live relay, used during shutdown.
func (t *Tracker) CloseAll() {
	for _, r := range t.List() {
		t.Close(r.Token)
	}
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.relays)
}
