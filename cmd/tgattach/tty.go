package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/term"
)

// ttySurface adapts the local TTY to a terminal surface: stdout renders
// session output, raw-mode stdin produces keystrokes, and SIGWINCH
// produces resize events.
type ttySurface struct {
	oldState *term.State
	detached chan struct{}

	mu       sync.Mutex
	disposed bool
	inputFn  func(string)
	resizeFn func(uint16, uint16)

	winch chan os.Signal
}

func newTTYSurface() (*ttySurface, error) {
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}

	s := &ttySurface{
		oldState: oldState,
		detached: make(chan struct{}),
		winch:    make(chan os.Signal, 1),
	}
	go s.readInput()

	signal.Notify(s.winch, syscall.SIGWINCH)
	go s.watchResize()

	return s, nil
}

func (s *ttySurface) readInput() {
	buf := make([]byte, 1024)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		for _, b := range buf[:n] {
			if b == detachByte {
				close(s.detached)
				return
			}
		}
		s.mu.Lock()
		fn := s.inputFn
		disposed := s.disposed
		s.mu.Unlock()
		if fn != nil && !disposed {
			fn(string(buf[:n]))
		}
	}
}

func (s *ttySurface) watchResize() {
	for range s.winch {
		cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			continue
		}
		s.mu.Lock()
		fn := s.resizeFn
		disposed := s.disposed
		s.mu.Unlock()
		if fn != nil && !disposed {
			fn(uint16(cols), uint16(rows))
		}
	}
}

func (s *ttySurface) Write(p []byte) {
	os.Stdout.Write(p)
}

func (s *ttySurface) OnInput(fn func(string)) {
	s.mu.Lock()
	s.inputFn = fn
	s.mu.Unlock()
}

func (s *ttySurface) OnResize(fn func(uint16, uint16)) {
	s.mu.Lock()
	s.resizeFn = fn
	s.mu.Unlock()
}

func (s *ttySurface) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.mu.Unlock()

	signal.Stop(s.winch)
	close(s.winch)
	term.Restore(int(os.Stdin.Fd()), s.oldState)
}
