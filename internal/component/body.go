package component

import "github.com/l1jgo/arena/internal/core/ecs"

// Position is the world-space location of an entity.
// Pure data, zero methods. All mutations happen in System functions.
type Position struct {
	X float32
	Y float32
}

// Velocity is expressed in world units per second.
type Velocity struct {
	VX float32
	VY float32
}

// Collider is a circle centred on Position. Two colliders interact when
// their Layer masks share a bit.
type Collider struct {
	Radius float32
	Layer  uint8
}

// Collision records the entities that overlapped this entity during the
// last collision pass. The collision system rewrites it every tick.
type Collision struct {
	With []ecs.Entity
}
