// Package session creates, tracks, and tears down interactive terminal
// sessions: the live pairing of one emulator surface with one transport
// connection, identified by the token the handshake service assigned.
package session

import (
	"sync"

	"github.com/termgate/termgate/internal/emulator"
	"github.com/termgate/termgate/internal/transport"
)

// Session is one live terminal connection. Its adapter and transport are
// created together by Controller.Open and destroyed together by teardown;
// no session ever holds just one of them.
type Session struct {
	Token string

	mu   sync.Mutex
	dims Dimensions

	adapter   *emulator.Adapter
	transport *transport.Transport
}

// Dims returns the most recent terminal dimensions.
func (s *Session) Dims() Dimensions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims
}

func (s *Session) setDims(d Dimensions) {
	s.mu.Lock()
	s.dims = d
	s.mu.Unlock()
}

// State reports the transport's lifecycle state.
func (s *Session) State() transport.State {
	return s.transport.State()
}

// Done is closed when the session's transport reaches Closed.
func (s *Session) Done() <-chan struct{} {
	return s.transport.Done()
}

// send forwards encoded frame bytes to the transport.
func (s *Session) send(p []byte) {
	s.transport.Send(p)
}

// teardown closes the transport and disposes the emulator adapter. When
// notice is non-empty it is rendered to the surface first, so the user
// sees the closure in-band in the terminal.
func (s *Session) teardown(notice string) {
	if notice != "" {
		s.adapter.Write([]byte(notice))
	}
	s.transport.Close()
	s.adapter.Dispose()
}
