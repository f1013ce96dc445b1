// Package shell opens interactive PTY-backed shells on terminal targets.
//
// SSH devices get a remote shell over golang.org/x/crypto/ssh; local
// devices get a PTY on the gateway host. Both kinds satisfy Session, so
// the WebSocket relay never cares which one it is driving.
package shell

import "io"

// Session is one interactive shell with a PTY attached.
type Session interface {
	// Write delivers keystrokes to the shell's stdin.
	Write(p []byte) (int, error)
	// Stdout streams the shell's combined output.
	Stdout() io.Reader
	// Resize changes the PTY dimensions.
	Resize(cols, rows uint16) error
	// Close terminates the shell and releases the PTY.
	Close() error
}
