package handler

import "net/http"

// handleCounters handles GET /debug/counters.
func (h *Handler) handleCounters(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		h.writeJSON(w, r, http.StatusServiceUnavailable, "GS-SYS-5030", "no session", nil)
		return
	}
	snap, err := h.status.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, "OK", "approximate values", snap)
}
