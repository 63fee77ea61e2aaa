package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/l1jgo/arena/internal/net"
	"github.com/l1jgo/arena/internal/persist"
	"go.uber.org/zap"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

type handlers struct {
	deps Deps
	log  *zap.Logger
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.deps.StartTime).Round(time.Second).String(),
	})
}

func (h *handlers) handleSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := h.deps.Sessions.Snapshot()
	if sessions == nil {
		sessions = []net.ConnectionInfo{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	rows, err := h.deps.History.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("session history query failed", zap.Error(err))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []persist.SessionRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

type eventView struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// handleEvents consumes up to limit pending messages on one channel.
// Payloads that are not JSON are returned as JSON strings.
func (h *handlers) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	channel := chi.URLParam(r, "channel")
	out := make([]eventView, 0, 8)
	for len(out) < limit {
		m, ok := h.deps.Events.PopForChannel(channel)
		if !ok {
			break
		}
		payload := json.RawMessage(m.Payload)
		if !json.Valid(payload) {
			payload, _ = json.Marshal(string(m.Payload))
		}
		out = append(out, eventView{Channel: m.Channel, Payload: payload})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return min(n, maxLimit), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
