package shell

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// LocalSession is an interactive shell running on the gateway host itself,
// for "local" devices such as the gateway console.
type LocalSession struct {
	ptmx *os.File
	cmd  *exec.Cmd
}

// StartLocal launches shellCmd on the gateway host behind a PTY. If
// shellCmd is empty it defaults to "/bin/bash".
func StartLocal(shellCmd string, cols, rows uint16) (*LocalSession, error) {
	if err := ValidateShell(shellCmd); err != nil {
		return nil, fmt.Errorf("validate shell: %w", err)
	}
	if shellCmd == "" {
		shellCmd = "/bin/bash"
	}

	cmd := exec.Command(shellCmd)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}

	return &LocalSession{ptmx: ptmx, cmd: cmd}, nil
}

func (s *LocalSession) Write(p []byte) (int, error) {
	return s.ptmx.Write(p)
}

func (s *LocalSession) Stdout() io.Reader {
	return s.ptmx
}

func (s *LocalSession) Resize(cols, rows uint16) error {
	return pty.Setsize(s.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

// Close releases the PTY and reaps the shell process.
func (s *LocalSession) Close() error {
	err := s.ptmx.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
	return err
}
