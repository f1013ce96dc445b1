package session

import (
	"context"
	"fmt"
	"log"

	"github.com/termgate/termgate/internal/emulator"
	"github.com/termgate/termgate/internal/frame"
	"github.com/termgate/termgate/internal/transport"
)

// closedNotice is rendered into the terminal when the remote side ends
// the session, so the user sees the closure where they were looking.
const closedNotice = "\r\nConnection ended\r\n"

// Controller is the only component that creates, looks up, or removes
// sessions. Everything in a session's lifetime funnels through it:
// handshake, connect, wiring, registration, and both close paths.
type Controller struct {
	registry  *Registry
	handshake Handshake
	baseURL   string

	// dial is swapped by tests.
	dial func(ctx context.Context, url string, cb transport.Callbacks) (*transport.Transport, error)
}

// NewController builds a controller around the given registry and
// handshake service. baseURL is the server's HTTP base, from which the
// session WebSocket URLs are derived.
func NewController(registry *Registry, handshake Handshake, baseURL string) *Controller {
	return &Controller{
		registry:  registry,
		handshake: handshake,
		baseURL:   baseURL,
		dial:      transport.Dial,
	}
}

// Registry exposes read-only session lookups.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// Open authenticates, connects, and registers a new session bound to
// surface, returning its token. The session is registered before Open
// returns, so navigation keyed on the token finds it immediately. On any
// failure nothing is registered and nothing is left running.
func (c *Controller) Open(ctx context.Context, p Params, surface emulator.Surface) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	grant, err := c.handshake.Exchange(ctx, p)
	if err != nil {
		return "", err
	}

	wsURL, err := SessionURL(c.baseURL, grant.Token, p.Dims)
	if err != nil {
		return "", err
	}

	s := &Session{Token: grant.Token, dims: p.Dims}
	cb := transport.Callbacks{
		OnMessage: func(data []byte) { s.adapter.Write(data) },
		OnClose:   func() { c.spontaneousClose(grant.Token) },
		OnError: func(err error) {
			log.Printf("[session] %s transport error: %v", grant.Token, err)
		},
	}

	tr, err := c.dial(ctx, wsURL, cb)
	if err != nil {
		return "", fmt.Errorf("connect session %s: %w", grant.Token, err)
	}
	s.transport = tr
	s.adapter = emulator.Bind(surface, func(f frame.Frame) {
		data, err := frame.Encode(f)
		if err != nil {
			log.Printf("[session] %s dropping unencodable frame: %v", grant.Token, err)
			return
		}
		if f.Kind == frame.KindResize {
			s.setDims(Dimensions{Cols: f.Cols, Rows: f.Rows})
		}
		s.send(data)
	})

	c.registry.add(s)
	tr.Start()
	log.Printf("[session] %s opened (device=%s, %dx%d)", grant.Token, p.DeviceID, p.Dims.Cols, p.Dims.Rows)
	return grant.Token, nil
}

// Close tears down the session registered under token. Unknown tokens are
// a no-op: a spontaneous remote close may have removed the entry already,
// and a second Close must be harmless.
func (c *Controller) Close(token string) {
	s := c.registry.remove(token)
	if s == nil {
		return
	}
	log.Printf("[session] %s closed", token)
	s.teardown("")
}

// CloseAll tears down every live session.
func (c *Controller) CloseAll() {
	for _, token := range c.registry.Tokens() {
		c.Close(token)
	}
}

// spontaneousClose handles transport-initiated shutdown: remote hangup,
// network drop, or the tail end of a local Close. Both close paths meet at
// the registry's atomic eviction, so teardown runs once no matter who won.
func (c *Controller) spontaneousClose(token string) {
	s := c.registry.remove(token)
	if s == nil {
		return
	}
	log.Printf("[session] %s connection ended by remote", token)
	s.teardown(closedNotice)
}
