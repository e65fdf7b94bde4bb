package server

import (
	"errors"
	"net/http"
)

// HandleHealthz answers liveness probes: healthy while the chat transport is
// connected.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if !h.status.Connected() {
		http.Error(w, "disconnected", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz runs each readiness check in order and reports the first
// failure.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"session", func() error {
			if !h.status.Running() {
				return errors.New("session not running")
			}
			return nil
		}},
		{"transport", func() error {
			if !h.status.Connected() {
				return errors.New("not connected")
			}
			return nil
		}},
		{"database", func() error {
			if h.db == nil {
				return nil
			}
			return h.db.PingContext(r.Context())
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
