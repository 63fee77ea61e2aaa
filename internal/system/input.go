package system

import (
	"time"

	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/handler"
	"github.com/l1jgo/arena/internal/metrics"
	"github.com/l1jgo/arena/internal/net"
	"github.com/l1jgo/arena/internal/net/packet"
	"github.com/l1jgo/arena/internal/world"
	"go.uber.org/zap"
)

// InputSystem drains the ingress queue once per tick and dispatches each
// packet through the packet registry. Runs first.
type InputSystem struct {
	ingress  *net.PacketQueue
	sessions *net.SessionTable
	packets  *packet.Registry[*net.Connection]
	players  *world.Players
	log      *zap.Logger
}

func NewInputSystem(
	ingress *net.PacketQueue,
	sessions *net.SessionTable,
	packets *packet.Registry[*net.Connection],
	players *world.Players,
	log *zap.Logger,
) *InputSystem {
	return &InputSystem{
		ingress:  ingress,
		sessions: sessions,
		packets:  packets,
		players:  players,
		log:      log,
	}
}

func (s *InputSystem) Name() string { return "input" }

func (s *InputSystem) Update(_ *ecs.Registry, _ time.Duration) error {
	pkts := s.ingress.Drain()
	metrics.PacketsDrained.Observe(float64(len(pkts)))

	for _, pkt := range pkts {
		conn, ok := s.sessions.Get(pkt.SessionID)
		if !ok || !conn.IsActive() {
			// Session went away between receive and drain.
			continue
		}
		if err := s.packets.Dispatch(conn, handler.StateOf(conn, s.players), pkt.Payload); err != nil {
			s.log.Debug("封包分派錯誤",
				zap.String("session", pkt.SessionID),
				zap.Error(err),
			)
		}
	}
	return nil
}
