package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"iter"
	"net/http"
	"time"
)

// Status is the view of the chat session the handlers need. Alone and
// IdleTimes may only be called inside Do.
type Status interface {
	Connected() bool
	Running() bool
	Do(ctx context.Context, fn func()) error
	Alone() string
	IdleTimes() iter.Seq2[string, time.Time]
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	status Status
	db     *sql.DB
	now    func() time.Time
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(st Status, db *sql.DB) *Handlers {
	return &Handlers{status: st, db: db, now: time.Now}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
