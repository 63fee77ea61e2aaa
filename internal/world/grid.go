package world

import (
	"math"

	"github.com/l1jgo/arena/internal/core/ecs"
)

// Grid is a uniform spatial hash used for broad-phase overlap queries.
// A 3x3 neighbourhood of cells covers any pair closer than the cell size,
// so the cell size must be at least the largest collision diameter.
// Accessed only from the game loop goroutine; no locks.
type Grid struct {
	cellSize float32
	cells    map[cellKey][]ecs.Entity
}

type cellKey struct {
	cx int32
	cy int32
}

func NewGrid(cellSize float32) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]ecs.Entity),
	}
}

func (g *Grid) toCell(v float32) int32 {
	return int32(math.Floor(float64(v / g.cellSize)))
}

func (g *Grid) key(x, y float32) cellKey {
	return cellKey{cx: g.toCell(x), cy: g.toCell(y)}
}

// Clear empties every cell but keeps the backing slices.
func (g *Grid) Clear() {
	for k, v := range g.cells {
		g.cells[k] = v[:0]
	}
}

// Insert places e into the cell containing (x, y).
func (g *Grid) Insert(e ecs.Entity, x, y float32) {
	k := g.key(x, y)
	g.cells[k] = append(g.cells[k], e)
}

// Nearby appends every entity in the 3x3 neighbourhood of (x, y) to dst.
// Callers do the exact distance test.
func (g *Grid) Nearby(dst []ecs.Entity, x, y float32) []ecs.Entity {
	k := g.key(x, y)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			dst = append(dst, g.cells[cellKey{cx: k.cx + dx, cy: k.cy + dy}]...)
		}
	}
	return dst
}
