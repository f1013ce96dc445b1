package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	handshakePath = "/api/v1/terminal/handshake"
	terminalPath  = "/api/v1/terminal/ws"
)

// Grant is the handshake service's answer: a short-lived token addressing
// one authorized session.
type Grant struct {
	Token string `json:"token"`
}

// HandshakeError is a rejection from the handshake service — bad
// credentials, unknown device, device offline. It reaches the UI shell
// as-is; retrying is the user's call.
type HandshakeError struct {
	Status int
	Detail string
}

func (e *HandshakeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("handshake rejected (%d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("handshake rejected (%d)", e.Status)
}

// Handshake exchanges connection parameters for a session grant.
type Handshake interface {
	Exchange(ctx context.Context, p Params) (Grant, error)
}

// HTTPHandshake performs the exchange against a termgate server.
type HTTPHandshake struct {
	// BaseURL is the server's HTTP base, e.g. "https://gate.example.com".
	BaseURL string
	// Client defaults to http.DefaultClient when nil.
	Client *http.Client
}

type handshakeRequest struct {
	DeviceID   string `json:"device_id"`
	Username   string `json:"username"`
	AuthMethod string `json:"auth_method"`
	Secret     string `json:"secret"`
	Cols       uint16 `json:"cols"`
	Rows       uint16 `json:"rows"`
}

func (h *HTTPHandshake) Exchange(ctx context.Context, p Params) (Grant, error) {
	body, err := json.Marshal(handshakeRequest{
		DeviceID:   p.DeviceID,
		Username:   p.Username,
		AuthMethod: string(p.AuthMethod),
		Secret:     p.Secret,
		Cols:       p.Dims.Cols,
		Rows:       p.Dims.Rows,
	})
	if err != nil {
		return Grant{}, fmt.Errorf("marshal handshake request: %w", err)
	}

	endpoint := strings.TrimRight(h.BaseURL, "/") + handshakePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Grant{}, fmt.Errorf("build handshake request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Grant{}, fmt.Errorf("handshake request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var reject struct {
			Detail string `json:"detail"`
		}
		json.NewDecoder(resp.Body).Decode(&reject)
		return Grant{}, &HandshakeError{Status: resp.StatusCode, Detail: reject.Detail}
	}

	var g Grant
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		return Grant{}, fmt.Errorf("decode handshake response: %w", err)
	}
	if g.Token == "" {
		return Grant{}, fmt.Errorf("handshake response carries no token")
	}
	return g, nil
}

// SessionURL builds the WebSocket endpoint for a granted session. The
// scheme follows the HTTP base — http becomes ws, https becomes wss — and
// the query carries the token plus the initial dimensions.
func SessionURL(base, token string, d Dimensions) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q in base url", u.Scheme)
	}
	u.Path = terminalPath

	q := url.Values{}
	q.Set("token", token)
	q.Set("cols", strconv.Itoa(int(d.Cols)))
	q.Set("rows", strconv.Itoa(int(d.Rows)))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
