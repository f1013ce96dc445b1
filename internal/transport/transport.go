// Package transport owns the persistent WebSocket connection for one
// terminal session.
//
// A Transport carries encoded frames toward the gateway and delivers the
// shell's output bytes back through callbacks. Sends are fire-and-forget:
// interactive terminals detect loss visually, so there is no delivery
// acknowledgment and no retry. Sending on a transport that is not open is
// a silent no-op — UI events routinely race connection teardown and must
// never fail loudly.
package transport

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/coder/websocket"
)

// State is the lifecycle state of a Transport. The only permitted
// transitions are Connecting→Open→Closing→Closed, plus Connecting→Closed
// when the dial fails. Nothing leaves Closed.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Callbacks receive inbound data and lifecycle events. OnMessage is invoked
// from a single reader goroutine in arrival order. OnClose fires exactly
// once per transport, whether closure was local, remote, or an error.
// OnError reports abnormal failures and always precedes the OnClose they
// cause. Any callback may be nil.
type Callbacks struct {
	OnMessage func(p []byte)
	OnClose   func()
	OnError   func(err error)
}

const (
	// readLimit caps a single inbound message.
	readLimit = 1024 * 1024
	// sendQueueDepth bounds the outbound queue; frames beyond it are
	// dropped rather than blocking the caller.
	sendQueueDepth = 256
)

// Transport is one full-duplex session connection.
type Transport struct {
	mu    sync.Mutex
	state State
	conn  *websocket.Conn
	cb    Callbacks

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	startOnce sync.Once
}

// Dial establishes the connection. It blocks until the WebSocket is open or
// ctx expires; a failed dial leaves the transport Closed and fires no
// callbacks. On success the transport is Open but inert — callers wire up
// their state and then call Start to begin the reader and writer loops.
func Dial(ctx context.Context, url string, cb Callbacks) (*Transport, error) {
	t := &Transport{
		state:  StateConnecting,
		cb:     cb,
		sendCh: make(chan []byte, sendQueueDepth),
		done:   make(chan struct{}),
	}

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.mu.Lock()
		t.state = StateClosed
		t.mu.Unlock()
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	conn.SetReadLimit(readLimit)

	t.mu.Lock()
	t.conn = conn
	t.state = StateOpen
	t.mu.Unlock()
	return t, nil
}

// Start launches the reader and writer goroutines. Frames sent between Dial
// and Start are queued and go out in order once the writer runs.
func (t *Transport) Start() {
	t.startOnce.Do(func() {
		go t.readLoop()
		go t.writeLoop()
	})
}

// State returns the current lifecycle state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed when the transport reaches Closed.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Send enqueues p for transmission. It never blocks and never fails: on a
// transport that is not Open it is a no-op, and when the outbound queue is
// full the frame is dropped.
func (t *Transport) Send(p []byte) {
	t.mu.Lock()
	open := t.state == StateOpen
	t.mu.Unlock()
	if !open {
		return
	}

	select {
	case t.sendCh <- p:
	default:
		log.Printf("[transport] outbound queue full, dropping %d bytes", len(p))
	}
}

// Close initiates an orderly shutdown. It is idempotent, safe to call after
// the remote side already closed, and guarantees the single OnClose fires.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.state == StateClosing || t.state == StateClosed {
		t.mu.Unlock()
		return
	}
	t.state = StateClosing
	conn := t.conn
	t.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	t.finish(nil)
}

func (t *Transport) readLoop() {
	for {
		_, data, err := t.conn.Read(context.Background())
		if err != nil {
			t.finish(err)
			return
		}
		if t.cb.OnMessage != nil {
			t.cb.OnMessage(data)
		}
	}
}

func (t *Transport) writeLoop() {
	for {
		select {
		case p := <-t.sendCh:
			if err := t.conn.Write(context.Background(), websocket.MessageText, p); err != nil {
				t.finish(err)
				return
			}
		case <-t.done:
			return
		}
	}
}

// finish moves the transport to Closed and fires OnClose exactly once.
// It is reached from Close, from the reader on remote closure or error,
// and from the writer on a failed write; the first caller wins.
func (t *Transport) finish(cause error) {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		wasClosing := t.state == StateClosing
		t.state = StateClosed
		conn := t.conn
		t.mu.Unlock()

		close(t.done)
		if conn != nil {
			conn.CloseNow()
		}

		// A close frame from the peer is normal shutdown, not an error.
		if cause != nil && !wasClosing && websocket.CloseStatus(cause) == -1 && t.cb.OnError != nil {
			t.cb.OnError(cause)
		}
		if t.cb.OnClose != nil {
			t.cb.OnClose()
		}
	})
}
