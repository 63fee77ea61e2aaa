package handler

import (
	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/net"
	"github.com/l1jgo/arena/internal/net/packet"
	"github.com/l1jgo/arena/internal/persist"
	"github.com/l1jgo/arena/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all packet handlers.
// Handlers run on the game loop goroutine only.
type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Registry *ecs.Registry
	Players  *world.Players
	Sessions *net.SessionTable
	Events   *event.Queue
	Ledger   *persist.Recorder // nil when the ledger is disabled
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry[*net.Connection], deps *Deps) {
	reg.Register(packet.C_OPCODE_HELLO,
		[]packet.SessionState{packet.StateConnected},
		func(conn *net.Connection, r *packet.Reader) error {
			return HandleHello(conn, r, deps)
		},
	)

	joined := []packet.SessionState{packet.StateJoined}

	reg.Register(packet.C_OPCODE_INPUT, joined,
		func(conn *net.Connection, r *packet.Reader) error {
			return HandleInput(conn, r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_PING,
		[]packet.SessionState{packet.StateConnected, packet.StateJoined},
		func(conn *net.Connection, r *packet.Reader) error {
			return HandlePing(conn, r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_BYE, joined,
		func(conn *net.Connection, r *packet.Reader) error {
			return HandleBye(conn, r, deps)
		},
	)
}

// StateOf reports the protocol phase of conn: Joined once it controls an
// entity, Leaving after it went inactive, Connected otherwise.
func StateOf(conn *net.Connection, players *world.Players) packet.SessionState {
	if !conn.IsActive() {
		return packet.StateLeaving
	}
	if p := players.Get(conn.ID()); p != nil && p.Conn == conn {
		return packet.StateJoined
	}
	return packet.StateConnected
}
