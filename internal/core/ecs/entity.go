package ecs

import "fmt"

// Entity encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Pools created without generations always hand out
// generation 0, so an Entity is then just a reusable integer id.
type Entity uint64

func NewEntity(index uint32, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

func (e Entity) Index() uint32      { return uint32(e) }
func (e Entity) Generation() uint32 { return uint32(e >> 32) }

func (e Entity) String() string {
	if e.Generation() == 0 {
		return fmt.Sprintf("%d", e.Index())
	}
	return fmt.Sprintf("%d#%d", e.Index(), e.Generation())
}

// EntityPool manages id allocation with a LIFO free list.
//
// Without generations a stale handle held across Destroy+Create aliases
// the new entity that reuses its index. With generations enabled the
// generation is bumped on Destroy so Alive rejects the stale handle.
type EntityPool struct {
	generations []uint32
	alive       []bool
	freeList    []uint32
	nextIndex   uint32
	live        int
	versioned   bool
}

func NewEntityPool(versioned bool) *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 0, 1024),
		alive:       make([]bool, 0, 1024),
		freeList:    make([]uint32, 0, 256),
		versioned:   versioned,
	}
}

func (p *EntityPool) Create() Entity {
	p.live++
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		p.alive[idx] = true
		return NewEntity(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	p.generations = append(p.generations, 0)
	p.alive = append(p.alive, true)
	return NewEntity(idx, 0)
}

func (p *EntityPool) Alive(e Entity) bool {
	idx := e.Index()
	if idx >= p.nextIndex {
		return false
	}
	return p.alive[idx] && p.generations[idx] == e.Generation()
}

// Destroy returns e's index to the free list. Destroying a dead, stale or
// never-issued entity is a no-op, which keeps the free list duplicate-free.
func (p *EntityPool) Destroy(e Entity) bool {
	if !p.Alive(e) {
		return false
	}
	idx := e.Index()
	p.alive[idx] = false
	if p.versioned {
		p.generations[idx]++
	}
	p.freeList = append(p.freeList, idx)
	p.live--
	return true
}

// Len returns the number of live entities.
func (p *EntityPool) Len() int { return p.live }

// Free returns the number of indices waiting for reuse.
func (p *EntityPool) Free() int { return len(p.freeList) }
