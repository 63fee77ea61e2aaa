package net

import (
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/l1jgo/arena/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SessionTable owns every Connection keyed by its endpoint id. Reader
// goroutines create entries; the simulation reaps them.
type SessionTable struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	// retired holds inactive connections replaced by a reconnect, reported
	// by the next ReapIdle.
	retired []Reaped

	limit rate.Limit
	burst int

	log *zap.Logger
}

// NewSessionTable creates a table whose connections admit packetsPerSecond
// inbound packets with the given burst. packetsPerSecond <= 0 disables limiting.
func NewSessionTable(packetsPerSecond float64, burst int, log *zap.Logger) *SessionTable {
	if burst <= 0 {
		burst = 1
	}
	return &SessionTable{
		conns: make(map[string]*Connection, 64),
		limit: rate.Limit(packetsPerSecond),
		burst: burst,
		log:   log,
	}
}

// Resolve returns the active Connection for addr, creating one if the
// endpoint is new or its previous Connection is no longer active.
func (t *SessionTable) Resolve(sock *Socket, addr netip.AddrPort) (*Connection, bool) {
	id := addr.String()

	t.mu.RLock()
	c, ok := t.conns[id]
	t.mu.RUnlock()
	if ok && c.IsActive() {
		return c, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.conns[id]; ok {
		if old.IsActive() {
			return old, false
		}
		t.retired = append(t.retired, Reaped{Conn: old, Reason: "replaced"})
	}
	var limiter *rate.Limiter
	if t.limit > 0 {
		limiter = rate.NewLimiter(t.limit, t.burst)
	}
	c = NewConnection(sock, addr, limiter, t.log)
	t.conns[id] = c
	metrics.ConnectionsActive.Set(float64(len(t.conns)))
	return c, true
}

func (t *SessionTable) Get(id string) (*Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.conns[id]
	return c, ok
}

// Remove disconnects and forgets the connection with id.
func (t *SessionTable) Remove(id string) *Connection {
	t.mu.Lock()
	c, ok := t.conns[id]
	if ok {
		delete(t.conns, id)
		metrics.ConnectionsActive.Set(float64(len(t.conns)))
	}
	t.mu.Unlock()
	if !ok {
		return nil
	}
	c.Disconnect()
	return c
}

func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}

// Each calls fn for every connection. fn runs outside the table lock.
func (t *SessionTable) Each(fn func(*Connection)) {
	t.mu.RLock()
	list := make([]*Connection, 0, len(t.conns))
	for _, c := range t.conns {
		list = append(list, c)
	}
	t.mu.RUnlock()
	for _, c := range list {
		fn(c)
	}
}

// Reaped describes a connection removed by ReapIdle.
type Reaped struct {
	Conn   *Connection
	Reason string // "idle", "inactive" or "replaced"
}

// ReapIdle disconnects and removes every connection that is already
// inactive or whose peer has been silent longer than timeout, and reports connections
// replaced by a reconnect since the last call. timeout <= 0 only removes
// inactive connections.
func (t *SessionTable) ReapIdle(timeout time.Duration) []Reaped {
	t.mu.Lock()
	out := t.retired
	t.retired = nil
	for id, c := range t.conns {
		switch {
		case !c.IsActive():
			out = append(out, Reaped{Conn: c, Reason: "inactive"})
		case timeout > 0 && c.SilentTime() > timeout:
			out = append(out, Reaped{Conn: c, Reason: "idle"})
		default:
			continue
		}
		delete(t.conns, id)
	}
	metrics.ConnectionsActive.Set(float64(len(t.conns)))
	t.mu.Unlock()

	for _, r := range out {
		r.Conn.Disconnect()
		metrics.ConnectionsReaped.WithLabelValues(r.Reason).Inc()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Conn.ID() < out[j].Conn.ID() })
	return out
}

// ConnectionInfo is a point-in-time view of one connection.
type ConnectionInfo struct {
	ID        string        `json:"id"`
	LocalPort uint16        `json:"local_port"`
	Active    bool          `json:"active"`
	Idle      time.Duration `json:"idle_ns"`
	Silent    time.Duration `json:"silent_ns"`
}

// Snapshot returns all connections sorted by id.
func (t *SessionTable) Snapshot() []ConnectionInfo {
	var out []ConnectionInfo
	t.Each(func(c *Connection) {
		out = append(out, ConnectionInfo{
			ID:        c.ID(),
			LocalPort: c.LocalPort(),
			Active:    c.IsActive(),
			Idle:      c.IdleTime(),
			Silent:    c.SilentTime(),
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
