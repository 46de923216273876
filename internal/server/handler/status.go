package handler

import (
	"net/http"
)

// StatusHandler reports how the running instance is wired.
type StatusHandler struct {
	Mode       string
	FeedSource string
	Transport  string
	Audit      bool
	Events     bool
}

// GetStatus responds with the active mode and wiring.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":        h.Mode,
		"feed_source": h.FeedSource,
		"transport":   h.Transport,
		"audit":       h.Audit,
		"events":      h.Events,
	})
}
