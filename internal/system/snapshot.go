package system

import (
	"time"

	"github.com/l1jgo/arena/internal/component"
	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/net/packet"
	"github.com/l1jgo/arena/internal/world"
)

// S_SNAPSHOT layout: opcode, count u16, then count × (entity u32, x f32, y f32).
const (
	snapshotHeader = 3
	snapshotEntry  = 12
)

// SnapshotSystem sends every entity position to every active player,
// split across as many datagrams as maxDatagram requires.
type SnapshotSystem struct {
	players  *world.Players
	perChunk int
}

func NewSnapshotSystem(players *world.Players, maxDatagram int) *SnapshotSystem {
	per := (maxDatagram - snapshotHeader) / snapshotEntry
	if per < 1 {
		per = 1
	}
	return &SnapshotSystem{players: players, perChunk: per}
}

func (s *SnapshotSystem) Name() string { return "snapshot" }

func (s *SnapshotSystem) Update(r *ecs.Registry, _ time.Duration) error {
	if s.players.Len() == 0 {
		return nil
	}
	chunks := s.build(ecs.StoreOf[component.Position](r))
	s.players.Each(func(p *world.Player) {
		if !p.Conn.IsActive() {
			return
		}
		for _, c := range chunks {
			p.Conn.Send(c)
		}
	})
	return nil
}

func (s *SnapshotSystem) build(positions *ecs.Store[component.Position]) [][]byte {
	entities := positions.Entities()
	var chunks [][]byte
	for start := 0; start < len(entities) || start == 0; start += s.perChunk {
		end := min(start+s.perChunk, len(entities))
		w := packet.NewWriterWithOpcode(packet.S_OPCODE_SNAPSHOT)
		w.WriteH(uint16(end - start))
		for _, e := range entities[start:end] {
			pos, _ := positions.Get(e)
			w.WriteDU(e.Index())
			w.WriteF(pos.X)
			w.WriteF(pos.Y)
		}
		chunks = append(chunks, w.Bytes())
	}
	return chunks
}
