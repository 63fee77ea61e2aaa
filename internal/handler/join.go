package handler

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/l1jgo/arena/internal/component"
	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/metrics"
	"github.com/l1jgo/arena/internal/net"
	"github.com/l1jgo/arena/internal/net/packet"
	"github.com/l1jgo/arena/internal/world"
	"go.uber.org/zap"
)

const maxNameLen = 16

// validName accepts 1 to maxNameLen printable runes of valid UTF-8.
func validName(name string) bool {
	if name == "" || !utf8.ValidString(name) || utf8.RuneCountInString(name) > maxNameLen {
		return false
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// HandleHello processes C_HELLO: spawns the player's entity at the world
// centre and replies S_WELCOME with its id.
func HandleHello(conn *net.Connection, r *packet.Reader, deps *Deps) error {
	name := strings.TrimSpace(r.ReadS())
	if r.Short() {
		return fmt.Errorf("hello: truncated")
	}
	if !validName(name) {
		return fmt.Errorf("hello: bad name %q", name)
	}

	sim := deps.Config.Simulation
	reg := deps.Registry
	e := reg.Spawn()
	ecs.StoreOf[component.Position](reg).Insert(e, component.Position{
		X: sim.WorldWidth / 2,
		Y: sim.WorldHeight / 2,
	})
	ecs.StoreOf[component.Velocity](reg).Insert(e, component.Velocity{})
	ecs.StoreOf[component.Collider](reg).Insert(e, component.Collider{Radius: sim.PlayerRadius, Layer: 1})
	ecs.StoreOf[component.SessionRef](reg).Insert(e, component.SessionRef{
		SessionID: conn.ID(),
		Name:      name,
		JoinedAt:  time.Now(),
	})

	// A reconnect from the same endpoint takes over the session id; the
	// entity left behind by the old connection goes away now.
	if prev := deps.Players.Bind(&world.Player{Conn: conn, Entity: e, Name: name}); prev != nil {
		retire(prev, "replaced", deps)
	}

	deps.Ledger.Opened(conn.ID(), conn.LocalPort(), name, uint64(e))
	deps.Events.PublishJSON(event.ChannelSession, event.SessionEvent{
		Type:    "join",
		Session: conn.ID(),
		Name:    name,
		Entity:  uint64(e),
	})

	w := packet.NewWriterWithOpcode(packet.S_OPCODE_WELCOME)
	w.WriteDU(e.Index())
	conn.Send(w.Bytes())

	deps.Log.Info("玩家加入",
		zap.String("session", conn.ID()),
		zap.String("name", name),
		zap.Stringer("entity", e),
	)
	return nil
}

// HandleBye processes C_BYE: the player leaves and the connection is
// dropped from the session table.
func HandleBye(conn *net.Connection, _ *packet.Reader, deps *Deps) error {
	Leave(conn, "bye", deps)
	if deps.Sessions.Remove(conn.ID()) != nil {
		metrics.ConnectionsReaped.WithLabelValues("bye").Inc()
	}
	return nil
}

// Leave removes conn's player from the world if conn still owns it.
// Called on C_BYE and by the session system for reaped connections.
func Leave(conn *net.Connection, reason string, deps *Deps) {
	p := deps.Players.Unbind(conn)
	if p == nil {
		return
	}
	retire(p, reason, deps)
	deps.Log.Info("玩家離開",
		zap.String("session", conn.ID()),
		zap.String("name", p.Name),
		zap.String("reason", reason),
	)
}

func retire(p *world.Player, reason string, deps *Deps) {
	deps.Registry.Kill(p.Entity)
	deps.Ledger.Closed(p.Conn.ID(), reason)
	deps.Events.PublishJSON(event.ChannelSession, event.SessionEvent{
		Type:    "leave",
		Session: p.Conn.ID(),
		Name:    p.Name,
		Entity:  uint64(p.Entity),
		Reason:  reason,
	})
}
