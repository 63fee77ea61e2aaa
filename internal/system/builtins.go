package system

import (
	"github.com/l1jgo/arena/internal/core/ecs"
	coresys "github.com/l1jgo/arena/internal/core/system"
	"github.com/l1jgo/arena/internal/handler"
	"github.com/l1jgo/arena/internal/net"
	"github.com/l1jgo/arena/internal/net/packet"
)

// Env is everything the built-in systems are constructed from.
type Env struct {
	Deps    *handler.Deps
	Ingress *net.PacketQueue
	Packets *packet.Registry[*net.Connection]
}

// RegisterBuiltins adds a factory for each built-in system to l.
func RegisterBuiltins(l *coresys.Loader, env *Env) {
	cfg := env.Deps.Config

	l.Register("input", func() (ecs.System, error) {
		return NewInputSystem(env.Ingress, env.Deps.Sessions, env.Packets, env.Deps.Players, env.Deps.Log), nil
	})
	l.Register("session", func() (ecs.System, error) {
		return NewSessionSystem(env.Deps, cfg.Network.IdleTimeout), nil
	})
	l.Register("movement", func() (ecs.System, error) {
		return NewMovementSystem(cfg.Simulation.WorldWidth, cfg.Simulation.WorldHeight), nil
	})
	l.Register("collision", func() (ecs.System, error) {
		cell := max(cfg.Simulation.CellSize, 2*cfg.Simulation.PlayerRadius)
		return NewCollisionSystem(cell, env.Deps.Events), nil
	})
	l.Register("snapshot", func() (ecs.System, error) {
		return NewSnapshotSystem(env.Deps.Players, cfg.Network.MaxDatagram), nil
	})
	l.Register("cleanup", func() (ecs.System, error) {
		return NewCleanupSystem(), nil
	})
}
