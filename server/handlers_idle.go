package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/minilodon/telemetry"
)

type idleEntry struct {
	Nick        string    `json:"nick"`
	LastActive  time.Time `json:"last_active"`
	IdleSeconds int64     `json:"idle_seconds"`
}

type idleResponse struct {
	Alone        string      `json:"alone,omitempty"`
	Participants []idleEntry `json:"participants"`
}

// HandleIdle reports the lone participant, or every tracked participant
// with their idle time. The snapshot is taken on the session goroutine.
func (h *Handlers) HandleIdle(w http.ResponseWriter, r *http.Request) {
	resp := idleResponse{Participants: []idleEntry{}}
	err := h.status.Do(r.Context(), func() {
		if resp.Alone = h.status.Alone(); resp.Alone != "" {
			return
		}
		now := h.now()
		for nick, last := range h.status.IdleTimes() {
			resp.Participants = append(resp.Participants, idleEntry{
				Nick:        nick,
				LastActive:  last.UTC(),
				IdleSeconds: int64(now.Sub(last) / time.Second),
			})
		}
	})
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Warn("idle snapshot failed", slog.Any("err", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
