package shell

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/crypto/ssh"
)

const connectTimeout = 10 * time.Second

// DialConfig describes an SSH target and how to authenticate against it.
type DialConfig struct {
	Addr       string // host:port
	Username   string
	AuthMethod string // "password" or "privateKey"
	Secret     string // password or PEM-encoded private key
	HostKey    string // authorized_keys format, empty disables pinning
}

// Dial opens an SSH connection to the target. The caller owns the returned
// client and must close it after the sessions built on it.
func Dial(ctx context.Context, dc DialConfig) (*ssh.Client, error) {
	auth, err := authMethod(dc.AuthMethod, dc.Secret)
	if err != nil {
		return nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if dc.HostKey != "" {
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(dc.HostKey))
		if err != nil {
			return nil, fmt.Errorf("parse pinned host key: %w", err)
		}
		hostKeyCallback = ssh.FixedHostKey(pub)
	}

	cfg := &ssh.ClientConfig{
		User:            dc.Username,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKeyCallback,
		Timeout:         connectTimeout,
	}

	dialer := net.Dialer{Timeout: connectTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", dc.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", dc.Addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, dc.Addr, cfg)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", dc.Addr, err)
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func authMethod(method, secret string) (ssh.AuthMethod, error) {
	switch method {
	case "password":
		return ssh.Password(secret), nil
	case "privateKey":
		signer, err := ssh.ParsePrivateKey([]byte(secret))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return ssh.PublicKeys(signer), nil
	default:
		return nil, fmt.Errorf("unknown auth method %q", method)
	}
}

// SSHSession is an interactive shell on a remote SSH target.
type SSHSession struct {
	stdin   io.WriteCloser
	stdout  io.Reader
	session *ssh.Session
}

// Start opens a PTY-backed shell session on client. If shellCmd is empty it
// defaults to "/bin/bash". The session does not own the client; the caller
// closes both.
func Start(client *ssh.Client, shellCmd string, cols, rows uint16) (*SSHSession, error) {
	if err := ValidateShell(shellCmd); err != nil {
		return nil, fmt.Errorf("validate shell: %w", err)
	}
	if shellCmd == "" {
		shellCmd = "/bin/bash"
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("create ssh session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}

	if err := session.RequestPty("xterm-256color", int(rows), int(cols), modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := session.Start(shellCmd); err != nil {
		session.Close()
		return nil, fmt.Errorf("start shell: %w", err)
	}

	return &SSHSession{stdin: stdin, stdout: stdout, session: session}, nil
}

func (s *SSHSession) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

func (s *SSHSession) Stdout() io.Reader {
	return s.stdout
}

// Resize changes the terminal dimensions of the PTY.
func (s *SSHSession) Resize(cols, rows uint16) error {
	return s.session.WindowChange(int(rows), int(cols))
}

// Close terminates the SSH session and releases resources.
func (s *SSHSession) Close() error {
	return s.session.Close()
}
