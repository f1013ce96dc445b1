// Package emulator bridges an external terminal surface to the framed
// session transport.
//
// The surface — the screen-buffer component that actually renders — is a
// black box behind the Surface interface. The Adapter translates its
// native events into outbound frames and pushes inbound shell output back
// into it, without ever interpreting the bytes itself: unrenderable
// sequences are the surface's problem, exactly as on a real terminal.
package emulator

import (
	"sync"

	"github.com/termgate/termgate/internal/frame"
)

// Surface is the minimal contract the terminal emulator component must
// honor: render bytes, report keystrokes and size changes, release
// resources. Everything else about the emulator is opaque.
type Surface interface {
	// Write renders p as terminal output.
	Write(p []byte)
	// OnInput registers the keystroke callback. data is the typed text.
	OnInput(fn func(data string))
	// OnResize registers the dimension-change callback.
	OnResize(fn func(cols, rows uint16))
	// Dispose releases the surface's resources.
	Dispose()
}

// Adapter connects one Surface to one outbound frame sink.
//
// Outbound frames pass through a queue drained by a single goroutine, so
// keystrokes reach the sink exactly in the order typed. Resize events are
// coalesced latest-wins while they wait in the queue: only the trailing
// queued resize is ever replaced, so a resize can never slide past a
// keystroke typed after it.
type Adapter struct {
	surface Surface

	mu       sync.Mutex
	queue    []frame.Frame
	disposed bool

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

// Bind registers the surface's keystroke and resize callbacks and starts
// the outbound drainer. send is invoked from a single goroutine; it may
// block without stalling the surface.
func Bind(surface Surface, send func(frame.Frame)) *Adapter {
	a := &Adapter{
		surface: surface,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	surface.OnInput(func(data string) {
		a.enqueue(frame.InputFrame([]byte(data)))
	})
	surface.OnResize(func(cols, rows uint16) {
		a.enqueue(frame.ResizeFrame(cols, rows))
	})
	go a.drain(send)
	return a
}

// Write pushes inbound shell output to the surface for rendering, in
// arrival order. It never fails: garbage bytes render as visible garbage
// rather than aborting the stream. Writes after Dispose are dropped.
func (a *Adapter) Write(p []byte) {
	a.mu.Lock()
	disposed := a.disposed
	a.mu.Unlock()
	if disposed {
		return
	}
	a.surface.Write(p)
}

// Dispose stops the outbound drainer and releases the surface. Safe to
// call any number of times.
func (a *Adapter) Dispose() {
	a.once.Do(func() {
		a.mu.Lock()
		a.disposed = true
		a.mu.Unlock()
		close(a.done)
		a.surface.Dispose()
	})
}

func (a *Adapter) enqueue(f frame.Frame) {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	last := len(a.queue) - 1
	if f.Kind == frame.KindResize && last >= 0 && a.queue[last].Kind == frame.KindResize {
		// Intermediate sizes carry no information; the latest wins.
		a.queue[last] = f
	} else {
		a.queue = append(a.queue, f)
	}
	a.mu.Unlock()

	select {
	case a.notify <- struct{}{}:
	default:
	}
}

func (a *Adapter) drain(send func(frame.Frame)) {
	for {
		a.mu.Lock()
		if len(a.queue) == 0 {
			a.mu.Unlock()
			select {
			case <-a.notify:
				continue
			case <-a.done:
				return
			}
		}
		f := a.queue[0]
		a.queue = a.queue[1:]
		a.mu.Unlock()

		select {
		case <-a.done:
			return
		default:
		}
		send(f)
	}
}
