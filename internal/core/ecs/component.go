package ecs

// Removable is implemented by all component stores so the Registry can
// erase an entity's data from every store on kill.
type Removable interface {
	Remove(e Entity)
	Len() int
}

const absent = -1

// Store is a sparse-set component store. Values live in a dense slice in
// insertion order; the sparse slice maps an entity index to its dense slot.
// Remove swaps the last element into the hole, so iteration order is not
// preserved across removals.
type Store[T any] struct {
	sparse   []int32
	entities []Entity
	values   []T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		entities: make([]Entity, 0, 64),
		values:   make([]T, 0, 64),
	}
}

func (s *Store[T]) slot(e Entity) int {
	idx := int(e.Index())
	if idx >= len(s.sparse) {
		return absent
	}
	slot := int(s.sparse[idx])
	if slot == absent || s.entities[slot] != e {
		return absent
	}
	return slot
}

// Insert stores c for e, replacing any previous value, and returns a
// pointer to the stored copy. The pointer is invalidated by the next
// Insert or Remove on this store.
func (s *Store[T]) Insert(e Entity, c T) *T {
	if slot := s.slot(e); slot != absent {
		s.values[slot] = c
		return &s.values[slot]
	}
	idx := int(e.Index())
	for len(s.sparse) <= idx {
		s.sparse = append(s.sparse, absent)
	}
	s.sparse[idx] = int32(len(s.entities))
	s.entities = append(s.entities, e)
	s.values = append(s.values, c)
	return &s.values[len(s.values)-1]
}

func (s *Store[T]) Get(e Entity) (*T, bool) {
	slot := s.slot(e)
	if slot == absent {
		return nil, false
	}
	return &s.values[slot], true
}

func (s *Store[T]) Has(e Entity) bool {
	return s.slot(e) != absent
}

// Remove erases e's value. Removing an entity the store does not hold is a no-op.
func (s *Store[T]) Remove(e Entity) {
	slot := s.slot(e)
	if slot == absent {
		return
	}
	last := len(s.entities) - 1
	if slot != last {
		moved := s.entities[last]
		s.entities[slot] = moved
		s.values[slot] = s.values[last]
		s.sparse[moved.Index()] = int32(slot)
	}
	var zero T
	s.values[last] = zero
	s.entities = s.entities[:last]
	s.values = s.values[:last]
	s.sparse[e.Index()] = absent
}

func (s *Store[T]) Len() int {
	return len(s.entities)
}

// Each visits every entry in dense order. fn must not insert into or
// remove from the store; use Registry.MarkForDestruction to kill during iteration.
func (s *Store[T]) Each(fn func(Entity, *T)) {
	for i := range s.entities {
		fn(s.entities[i], &s.values[i])
	}
}

// Entities returns a copy of the entity list in dense order.
func (s *Store[T]) Entities() []Entity {
	out := make([]Entity, len(s.entities))
	copy(out, s.entities)
	return out
}
