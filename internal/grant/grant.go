// Package grant issues short-lived single-use tokens that bridge the
// handshake endpoint and the terminal WebSocket endpoint. A grant carries
// everything the relay needs to open the shell, so the WebSocket request
// itself only presents the token.
package grant

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultTTL = 2 * time.Minute

// Grant holds the resolved connection details for one authorized session.
// SecretEnc is the fernet-encrypted credential; the plaintext never sits
// in the store.
type Grant struct {
	Token      string
	DeviceID   string
	Kind       string // "ssh" or "local"
	Addr       string // host:port for ssh devices
	HostKey    string
	Username   string
	AuthMethod string
	SecretEnc  string
	Cols       uint16
	Rows       uint16
	ExpiresAt  time.Time
}

// Store keeps pending grants in memory. Grants are removed on redemption,
// expiry, or the periodic sweep.
type Store struct {
	mu     sync.Mutex
	grants map[string]*Grant
	ttl    time.Duration
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		grants: make(map[string]*Grant),
		ttl:    ttl,
	}
}

// Issue stores g under a fresh token and returns the token.
func (s *Store) Issue(g Grant) string {
	g.Token = uuid.New().String()
	g.ExpiresAt = time.Now().Add(s.ttl)

	s.mu.Lock()
	s.grants[g.Token] = &g
	s.mu.Unlock()
	return g.Token
}

// Redeem returns and removes the grant for token, or nil when the token is
// unknown, already redeemed, or expired. A token can only ever be redeemed
// once.
func (s *Store) Redeem(token string) *Grant {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grants[token]
	if !ok {
		return nil
	}
	delete(s.grants, token)
	if time.Now().After(g.ExpiresAt) {
		return nil
	}
	return g
}

// Sweep drops expired grants that were never redeemed.
func (s *Store) Sweep() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for token, g := range s.grants {
		if now.After(g.ExpiresAt) {
			delete(s.grants, token)
			log.Printf("[grant] expired unredeemed grant for device %s", g.DeviceID)
		}
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.grants)
}
