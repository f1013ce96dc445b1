package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/termgate/termgate/internal/database"
	"github.com/termgate/termgate/internal/grant"
	"github.com/termgate/termgate/internal/logutil"
	"github.com/termgate/termgate/internal/secrets"
	"github.com/termgate/termgate/internal/shell"
)

const probeTimeout = 5 * time.Second

type handshakeRequest struct {
	DeviceID   string `json:"device_id"`
	Username   string `json:"username"`
	AuthMethod string `json:"auth_method"`
	Secret     string `json:"secret"`
	Cols       uint16 `json:"cols"`
	Rows       uint16 `json:"rows"`
}

func (req *handshakeRequest) validate() error {
	if req.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	if req.Username == "" {
		return fmt.Errorf("username is required")
	}
	switch req.AuthMethod {
	case "password", "privateKey":
	default:
		return fmt.Errorf("unknown auth_method %q", req.AuthMethod)
	}
	if req.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	return nil
}

// Handshake authorizes a terminal session and returns a single-use token
// for the WebSocket endpoint.
// POST /api/v1/terminal/handshake
func (g *Gateway) Handshake(w http.ResponseWriter, r *http.Request) {
	var req handshakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	device, err := database.GetDeviceByDeviceID(req.DeviceID)
	if err != nil {
		log.Printf("[handshake] unknown device %s", logutil.SanitizeForLog(req.DeviceID))
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}

	addr := ""
	if device.Kind == "ssh" {
		addr = net.JoinHostPort(device.Host, fmt.Sprintf("%d", device.Port))
		conn, err := net.DialTimeout("tcp", addr, probeTimeout)
		if err != nil {
			log.Printf("[handshake] device %s unreachable at %s: %v", device.DeviceID, addr, err)
			writeError(w, http.StatusServiceUnavailable, "Device offline")
			return
		}
		conn.Close()
	}

	secretEnc, err := secrets.Encrypt(req.Secret)
	if err != nil {
		log.Printf("[handshake] encrypt secret: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	cols, rows := shell.ClampDims(req.Cols, req.Rows)
	token := g.Grants.Issue(grant.Grant{
		DeviceID:   device.DeviceID,
		Kind:       device.Kind,
		Addr:       addr,
		HostKey:    device.HostKey,
		Username:   req.Username,
		AuthMethod: req.AuthMethod,
		SecretEnc:  secretEnc,
		Cols:       cols,
		Rows:       rows,
	})

	log.Printf("[handshake] issued grant for device %s user %s (%dx%d)",
		device.DeviceID, logutil.SanitizeForLog(req.Username), cols, rows)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
