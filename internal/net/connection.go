package net

import (
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// now is swapped in tests.
var now = time.Now

// Connection is the session for one remote endpoint. Its state is read by
// the simulation and mutated by reader and writer goroutines, so every
// field that crosses goroutines is atomic.
//
// A Connection only goes Active → Inactive, through Disconnect or a failed
// send. A reconnecting endpoint gets a new Connection.
type Connection struct {
	id   string
	addr netip.AddrPort
	sock *Socket

	lastActivity atomic.Int64 // unix nanos, receive or completed send
	lastReceived atomic.Int64 // unix nanos, receive only
	active       atomic.Bool
	releaseOnce  sync.Once

	limiter *rate.Limiter // reader goroutine of sock only

	log *zap.Logger
}

// NewConnection binds a session for addr to the shared socket. A nil
// limiter admits every packet.
func NewConnection(sock *Socket, addr netip.AddrPort, limiter *rate.Limiter, log *zap.Logger) *Connection {
	id := addr.String()
	c := &Connection{
		id:      id,
		addr:    addr,
		sock:    sock,
		limiter: limiter,
		log:     log.With(zap.String("session", id)),
	}
	c.active.Store(true)
	t := now().UnixNano()
	c.lastActivity.Store(t)
	c.lastReceived.Store(t)
	sock.Acquire()
	return c
}

// ID returns "<ip>:<port>" of the remote endpoint.
func (c *Connection) ID() string { return c.id }

func (c *Connection) Addr() netip.AddrPort { return c.addr }

// LocalPort is the server port this session arrived on.
func (c *Connection) LocalPort() uint16 { return c.sock.LocalPort() }

// Send hands data to the socket's writer and returns immediately. Failure
// is only visible later through IsActive. Activity is refreshed when the
// write completes, not here. Sends after Disconnect are dropped.
func (c *Connection) Send(data []byte) {
	if !c.active.Load() {
		return
	}
	c.sock.enqueue(c, data)
}

func (c *Connection) IsActive() bool { return c.active.Load() }

// Disconnect marks the session inactive for good. Sends already handed to
// the writer are not recalled.
func (c *Connection) Disconnect() {
	if c.active.Swap(false) {
		c.release()
	}
}

func (c *Connection) UpdateActivity() {
	c.lastActivity.Store(now().UnixNano())
}

func (c *Connection) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// IdleTime is the time since the last received packet or completed send.
func (c *Connection) IdleTime() time.Duration {
	return now().Sub(c.LastActivity())
}

// MarkReceived records an inbound packet. It refreshes both the activity
// and the receive timestamps.
func (c *Connection) MarkReceived() {
	t := now().UnixNano()
	c.lastReceived.Store(t)
	c.lastActivity.Store(t)
}

func (c *Connection) LastReceived() time.Time {
	return time.Unix(0, c.lastReceived.Load())
}

// SilentTime is the time since the peer last sent anything. Completed
// sends do not reset it; a UDP write to a vanished peer still succeeds.
func (c *Connection) SilentTime() time.Duration {
	return now().Sub(c.LastReceived())
}

// Allow reports whether one more inbound packet fits the rate limit.
func (c *Connection) Allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}

// completed runs on the writer goroutine after a successful write.
func (c *Connection) completed() {
	if c.active.Load() {
		c.UpdateActivity()
	}
}

// fail runs on the writer goroutine after a failed write.
func (c *Connection) fail(err error) {
	if c.active.Swap(false) {
		c.log.Debug("send failed, connection inactive", zap.Error(err))
		c.release()
	}
}

func (c *Connection) release() {
	c.releaseOnce.Do(c.sock.Release)
}
