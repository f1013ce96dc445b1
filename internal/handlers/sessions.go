package handlers

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// ListSessions returns the live terminal relays.
// GET /api/v1/terminal/sessions
func (g *Gateway) ListSessions(w http.ResponseWriter, r *http.Request) {
	relays := g.Tracker.List()
	sort.Slice(relays, func(i, j int) bool {
		return relays[i].StartedAt.Before(relays[j].StartedAt)
	})
	writeJSON(w, http.StatusOK, relays)
}

// CloseSession force-closes a live relay by token.
// DELETE /api/v1/terminal/sessions/{token}
func (g *Gateway) CloseSession(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if !g.Tracker.Close(token) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closing"})
}
