package event

import (
	"encoding/json"

	"github.com/l1jgo/arena/internal/metrics"
)

// SessionEvent is the payload published on ChannelSession.
type SessionEvent struct {
	Type    string `json:"type"` // "join" or "leave"
	Session string `json:"session"`
	Name    string `json:"name,omitempty"`
	Entity  uint64 `json:"entity"`
	Reason  string `json:"reason,omitempty"`
}

// CollisionEvent is the payload published on ChannelCollision, one per
// overlapping pair with A < B.
type CollisionEvent struct {
	A uint64 `json:"a"`
	B uint64 `json:"b"`
}

// PublishJSON encodes v and pushes it on channel. Rejected messages are
// counted in arena_events_dropped_total.
func (q *Queue) PublishJSON(channel string, v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		return false
	}
	if !q.Publish(channel, payload) {
		metrics.EventsDropped.Inc()
		return false
	}
	return true
}
