package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/termgate/termgate/internal/config"
	"github.com/termgate/termgate/internal/frame"
	"github.com/termgate/termgate/internal/grant"
	"github.com/termgate/termgate/internal/secrets"
	"github.com/termgate/termgate/internal/shell"
)

// openShell resolves a redeemed grant into a running shell session. Split
// out so tests can substitute a fake shell without a real SSH target.
var openShell = func(ctx context.Context, gr *grant.Grant, secret string, cols, rows uint16) (shell.Session, func(), error) {
	if gr.Kind == "local" {
		sess, err := shell.StartLocal(config.Cfg.DefaultShell, cols, rows)
		if err != nil {
			return nil, nil, err
		}
		return sess, func() { sess.Close() }, nil
	}

	client, err := shell.Dial(ctx, shell.DialConfig{
		Addr:       gr.Addr,
		Username:   gr.Username,
		AuthMethod: gr.AuthMethod,
		Secret:     secret,
		HostKey:    gr.HostKey,
	})
	if err != nil {
		return nil, nil, err
	}
	sess, err := shell.Start(client, config.Cfg.DefaultShell, cols, rows)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return sess, func() {
		sess.Close()
		client.Close()
	}, nil
}

// TerminalWS upgrades to WebSocket and relays between the client and the
// shell the grant authorizes.
//
// The client sends JSON text frames (input and resize); the server sends
// raw shell output as binary messages.
// GET /api/v1/terminal/ws?token=...
func (g *Gateway) TerminalWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[terminal] accept websocket: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	gr := g.Grants.Redeem(r.URL.Query().Get("token"))
	if gr == nil {
		conn.Close(4001, "Invalid or expired token")
		return
	}

	cols, rows := shell.ClampDims(gr.Cols, gr.Rows)

	secret, err := secrets.Decrypt(gr.SecretEnc)
	if err != nil {
		log.Printf("[terminal] decrypt secret for device %s: %v", gr.DeviceID, err)
		conn.Close(4500, "Internal error")
		return
	}

	sess, closeShell, err := openShell(ctx, gr, secret, cols, rows)
	if err != nil {
		log.Printf("[terminal] open shell for device %s: %v", gr.DeviceID, err)
		conn.Close(4502, "Failed to open shell")
		return
	}
	defer closeShell()

	conn.SetReadLimit(1024 * 1024)

	relayCtx, relayCancel := context.WithCancel(ctx)
	defer relayCancel()

	relay := &Relay{
		Token:     gr.Token,
		DeviceID:  gr.DeviceID,
		Username:  gr.Username,
		StartedAt: time.Now(),
		cancel:    relayCancel,
	}
	g.Tracker.add(relay)
	defer g.Tracker.remove(gr.Token)
	log.Printf("[terminal] relay started: device=%s user=%s", gr.DeviceID, gr.Username)

	// Shell stdout -> client
	go func() {
		defer relayCancel()
		buf := make([]byte, 32*1024)
		for {
			n, err := sess.Stdout().Read(buf)
			if n > 0 {
				if werr := conn.Write(relayCtx, websocket.MessageBinary, buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	limiter := shell.NewRateLimiter(shell.InputRateLimit, shell.InputRateBurst)

	// Client frames -> shell stdin / PTY size
	for {
		_, data, err := conn.Read(relayCtx)
		if err != nil {
			break
		}

		if !limiter.Allow() {
			log.Printf("[terminal] rate limit exceeded: device=%s", gr.DeviceID)
			continue
		}

		f, err := frame.Decode(data)
		if err != nil {
			// Malformed frames are dropped; the session stays up.
			log.Printf("[terminal] dropping malformed frame: device=%s: %v", gr.DeviceID, err)
			continue
		}

		switch f.Kind {
		case frame.KindInput:
			if len(f.Input) > shell.MaxInputMessageSize {
				log.Printf("[terminal] oversized input dropped: device=%s size=%d", gr.DeviceID, len(f.Input))
				continue
			}
			if _, err := sess.Write(f.Input); err != nil {
				log.Printf("[terminal] shell write: device=%s: %v", gr.DeviceID, err)
				relayCancel()
			}
		case frame.KindResize:
			c, rws := shell.ClampDims(f.Cols, f.Rows)
			if err := sess.Resize(c, rws); err != nil {
				log.Printf("[terminal] resize: device=%s: %v", gr.DeviceID, err)
			}
		}
	}

	log.Printf("[terminal] relay ended: device=%s user=%s", gr.DeviceID, gr.Username)
	conn.Close(websocket.StatusNormalClosure, "")
}
