package system

import (
	"time"

	"github.com/l1jgo/arena/internal/component"
	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/core/event"
	"github.com/l1jgo/arena/internal/world"
)

// CollisionSystem finds overlapping colliders with a spatial-grid broad
// phase and an exact circle test. Each overlapping pair gets a Collision
// component on both sides every tick; the collision channel only hears
// about a pair on the tick its contact starts.
type CollisionSystem struct {
	grid   *world.Grid
	events *event.Queue
	near   []ecs.Entity

	contacts map[contact]struct{} // pairs overlapping last tick
	current  map[contact]struct{}
}

// contact is an unordered pair stored with a < b.
type contact struct{ a, b ecs.Entity }

// NewCollisionSystem needs cellSize >= the largest collider diameter.
func NewCollisionSystem(cellSize float32, events *event.Queue) *CollisionSystem {
	return &CollisionSystem{
		grid:     world.NewGrid(cellSize),
		events:   events,
		contacts: make(map[contact]struct{}),
		current:  make(map[contact]struct{}),
	}
}

func (s *CollisionSystem) Name() string { return "collision" }

func (s *CollisionSystem) Update(r *ecs.Registry, _ time.Duration) error {
	positions := ecs.StoreOf[component.Position](r)
	colliders := ecs.StoreOf[component.Collider](r)
	collisions := ecs.StoreOf[component.Collision](r)

	collisions.Each(func(_ ecs.Entity, c *component.Collision) {
		c.With = c.With[:0]
	})

	s.grid.Clear()
	ecs.Each2(positions, colliders, func(e ecs.Entity, pos *component.Position, _ *component.Collider) {
		s.grid.Insert(e, pos.X, pos.Y)
	})

	ecs.Each2(positions, colliders, func(a ecs.Entity, pa *component.Position, ca *component.Collider) {
		s.near = s.grid.Nearby(s.near[:0], pa.X, pa.Y)
		for _, b := range s.near {
			if b <= a {
				continue
			}
			pb, _ := positions.Get(b)
			cb, _ := colliders.Get(b)
			if ca.Layer&cb.Layer == 0 {
				continue
			}
			dx, dy := pa.X-pb.X, pa.Y-pb.Y
			reach := ca.Radius + cb.Radius
			if dx*dx+dy*dy >= reach*reach {
				continue
			}
			touch(collisions, a, b)
			touch(collisions, b, a)
			pair := contact{a, b}
			s.current[pair] = struct{}{}
			if _, ok := s.contacts[pair]; !ok {
				s.events.PublishJSON(event.ChannelCollision, event.CollisionEvent{A: uint64(a), B: uint64(b)})
			}
		}
	})
	s.contacts, s.current = s.current, s.contacts
	clear(s.current)

	for _, e := range collisions.Entities() {
		if c, _ := collisions.Get(e); len(c.With) == 0 {
			collisions.Remove(e)
		}
	}
	return nil
}

func touch(store *ecs.Store[component.Collision], e, other ecs.Entity) {
	c, ok := store.Get(e)
	if !ok {
		c = store.Insert(e, component.Collision{})
	}
	c.With = append(c.With, other)
}
