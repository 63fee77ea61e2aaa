package handler

import (
	"fmt"
	"math"

	"github.com/l1jgo/arena/internal/component"
	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/net"
	"github.com/l1jgo/arena/internal/net/packet"
)

// HandleInput processes C_INPUT: the player's desired velocity, clamped to
// the configured max speed.
func HandleInput(conn *net.Connection, r *packet.Reader, deps *Deps) error {
	vx, vy := r.ReadF(), r.ReadF()
	if r.Short() {
		return fmt.Errorf("input: truncated")
	}
	if !finite(vx) || !finite(vy) {
		return fmt.Errorf("input: non-finite velocity")
	}

	p := deps.Players.Get(conn.ID())
	if p == nil {
		return nil
	}
	vel, ok := ecs.StoreOf[component.Velocity](deps.Registry).Get(p.Entity)
	if !ok {
		return nil
	}

	limit := deps.Config.Simulation.MaxSpeed
	if speed := float32(math.Hypot(float64(vx), float64(vy))); limit > 0 && speed > limit {
		scale := limit / speed
		vx *= scale
		vy *= scale
	}
	vel.VX, vel.VY = vx, vy
	return nil
}

// HandlePing processes C_PING and echoes the nonce back in S_PONG.
func HandlePing(conn *net.Connection, r *packet.Reader, _ *Deps) error {
	nonce := r.ReadDU()
	if r.Short() {
		return fmt.Errorf("ping: truncated")
	}
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_PONG)
	w.WriteDU(nonce)
	conn.Send(w.Bytes())
	return nil
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
