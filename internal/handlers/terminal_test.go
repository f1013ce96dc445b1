package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/termgate/termgate/internal/frame"
	"github.com/termgate/termgate/internal/grant"
	"github.com/termgate/termgate/internal/shell"
)

// fakeShellSession satisfies shell.Session without any real target.
type fakeShellSession struct {
	mu      sync.Mutex
	written []byte
	cols    uint16
	rows    uint16
	closed  int

	outR *io.PipeReader
	outW *io.PipeWriter
}

func newFakeShellSession() *fakeShellSession {
	r, w := io.Pipe()
	return &fakeShellSession{outR: r, outW: w}
}

func (f *fakeShellSession) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, p...)
	return len(p), nil
}

func (f *fakeShellSession) Stdout() io.Reader { return f.outR }

func (f *fakeShellSession) Resize(cols, rows uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cols, f.rows = cols, rows
	return nil
}

func (f *fakeShellSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed == 0 {
		f.outW.Close()
	}
	f.closed++
	return nil
}

func (f *fakeShellSession) writtenString() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.written)
}

func (f *fakeShellSession) dims() (uint16, uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cols, f.rows
}

// installFakeShell routes openShell to the given session for the duration
// of the test.
func installFakeShell(t *testing.T, fs *fakeShellSession) {
	t.Helper()
	old := openShell
	openShell = func(ctx context.Context, gr *grant.Grant, secret string, cols, rows uint16) (shell.Session, func(), error) {
		fs.Resize(cols, rows)
		return fs, func() { fs.Close() }, nil
	}
	t.Cleanup(func() { openShell = old })
}

func newTestGateway(t *testing.T) (*Gateway, *httptest.Server) {
	t.Helper()
	setupTestDB(t)
	g := NewGateway(grant.NewStore(time.Minute))

	r := chi.NewRouter()
	r.Get("/api/v1/terminal/ws", g.TerminalWS)
	r.Get("/api/v1/terminal/sessions", g.ListSessions)
	r.Delete("/api/v1/terminal/sessions/{token}", g.CloseSession)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return g, srv
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/terminal/ws?token=" + token
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, f frame.Frame) {
	t.Helper()
	data, err := frame.Encode(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.Write(context.Background(), websocket.MessageText, data); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func waitForShell(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for %s", what)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestTerminalWS_InvalidToken(t *testing.T) {
	_, srv := newTestGateway(t)

	conn := dialWS(t, srv, "bogus")
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	if err == nil {
		t.Fatal("read succeeded on rejected connection")
	}
	if status := websocket.CloseStatus(err); status != 4001 {
		t.Errorf("close status = %d, want 4001", status)
	}
}

func TestTerminalWS_Relay(t *testing.T) {
	g, srv := newTestGateway(t)
	fs := newFakeShellSession()
	installFakeShell(t, fs)

	token := g.Grants.Issue(grant.Grant{DeviceID: "web-1", Kind: "ssh", Username: "root", Cols: 80, Rows: 24})
	conn := dialWS(t, srv, token)
	defer conn.CloseNow()

	// Keystrokes reach the shell in order.
	sendFrame(t, conn, frame.InputFrame([]byte("l")))
	sendFrame(t, conn, frame.InputFrame([]byte("s")))
	sendFrame(t, conn, frame.InputFrame([]byte("\n")))
	waitForShell(t, "shell input", func() bool { return fs.writtenString() == "ls\n" })

	// Shell output arrives as binary.
	fs.outW.Write([]byte("bin  etc  usr\n"))
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	msgType, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if msgType != websocket.MessageBinary {
		t.Errorf("message type = %v, want binary", msgType)
	}
	if string(data) != "bin  etc  usr\n" {
		t.Errorf("output = %q", data)
	}

	// Token is single use: the relay is tracked, and the token no longer redeems.
	if g.Tracker.Len() != 1 {
		t.Errorf("tracker has %d relays, want 1", g.Tracker.Len())
	}
	if g.Grants.Redeem(token) != nil {
		t.Error("token redeemed twice")
	}
}

func TestTerminalWS_MalformedFrameDropped(t *testing.T) {
	g, srv := newTestGateway(t)
	fs := newFakeShellSession()
	installFakeShell(t, fs)

	token := g.Grants.Issue(grant.Grant{DeviceID: "web-1", Kind: "ssh", Username: "root", Cols: 80, Rows: 24})
	conn := dialWS(t, srv, token)
	defer conn.CloseNow()

	// Garbage and unknown kinds are dropped without ending the session.
	conn.Write(context.Background(), websocket.MessageText, []byte("{not json"))
	conn.Write(context.Background(), websocket.MessageText, []byte(`{"kind":9,"data":[1]}`))

	sendFrame(t, conn, frame.InputFrame([]byte("still alive")))
	waitForShell(t, "input after malformed frames", func() bool {
		return fs.writtenString() == "still alive"
	})
}

func TestTerminalWS_ResizeClamped(t *testing.T) {
	g, srv := newTestGateway(t)
	fs := newFakeShellSession()
	installFakeShell(t, fs)

	token := g.Grants.Issue(grant.Grant{DeviceID: "web-1", Kind: "ssh", Username: "root", Cols: 80, Rows: 24})
	conn := dialWS(t, srv, token)
	defer conn.CloseNow()

	sendFrame(t, conn, frame.ResizeFrame(10000, 9000))
	waitForShell(t, "clamped resize", func() bool {
		cols, rows := fs.dims()
		return cols == shell.MaxTermCols && rows == shell.MaxTermRows
	})
}

func TestTerminalWS_ForcedClose(t *testing.T) {
	g, srv := newTestGateway(t)
	fs := newFakeShellSession()
	installFakeShell(t, fs)

	token := g.Grants.Issue(grant.Grant{DeviceID: "web-1", Kind: "ssh", Username: "root", Cols: 80, Rows: 24})
	conn := dialWS(t, srv, token)
	defer conn.CloseNow()

	sendFrame(t, conn, frame.InputFrame([]byte("x")))
	waitForShell(t, "relay tracked", func() bool { return g.Tracker.Len() == 1 })

	req, _ := http.NewRequest("DELETE", srv.URL+"/api/v1/terminal/sessions/"+token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	waitForShell(t, "relay removed", func() bool { return g.Tracker.Len() == 0 })

	// The client's connection ends once the relay is cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}
}

func TestCloseSession_Unknown(t *testing.T) {
	_, srv := newTestGateway(t)

	req, _ := http.NewRequest("DELETE", srv.URL+"/api/v1/terminal/sessions/nope", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListSessions(t *testing.T) {
	g, srv := newTestGateway(t)
	fs := newFakeShellSession()
	installFakeShell(t, fs)

	token := g.Grants.Issue(grant.Grant{DeviceID: "web-1", Kind: "ssh", Username: "root", Cols: 80, Rows: 24})
	conn := dialWS(t, srv, token)
	defer conn.CloseNow()

	waitForShell(t, "relay tracked", func() bool { return g.Tracker.Len() == 1 })

	resp, err := http.Get(srv.URL + "/api/v1/terminal/sessions")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), token) {
		t.Errorf("session list missing token: %s", body)
	}
	if !strings.Contains(string(body), "web-1") {
		t.Errorf("session list missing device: %s", body)
	}
}
