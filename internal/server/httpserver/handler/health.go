package handler

import "net/http"

// handleHealth handles GET /health. The process is live as long as it
// can answer.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, "OK", "healthy", map[string]string{"status": "healthy"})
}

// handleReady handles GET /ready. It reports 503 until every shard has
// finished its initial synchronization.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.status == nil || !h.status.Ready() {
		h.writeJSON(w, r, http.StatusServiceUnavailable, "GS-SYS-5030", "hydrating", map[string]string{"status": "hydrating"})
		return
	}
	h.writeJSON(w, r, http.StatusOK, "OK", "ready", map[string]string{"status": "ready"})
}
