package system

import (
	"time"

	"github.com/l1jgo/arena/internal/component"
	"github.com/l1jgo/arena/internal/core/ecs"
)

// MovementSystem integrates velocity into position and keeps every entity
// inside the world rectangle.
type MovementSystem struct {
	width  float32
	height float32
}

func NewMovementSystem(width, height float32) *MovementSystem {
	return &MovementSystem{width: width, height: height}
}

func (s *MovementSystem) Name() string { return "movement" }

func (s *MovementSystem) Update(r *ecs.Registry, dt time.Duration) error {
	secs := float32(dt.Seconds())
	ecs.Each2(ecs.StoreOf[component.Position](r), ecs.StoreOf[component.Velocity](r),
		func(_ ecs.Entity, pos *component.Position, vel *component.Velocity) {
			pos.X = clamp(pos.X+vel.VX*secs, 0, s.width)
			pos.Y = clamp(pos.Y+vel.VY*secs, 0, s.height)
		})
	return nil
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
