package ecs

// Each2 iterates over entities that have both component A and B.
// It iterates over the smaller store and looks entities up in the larger one.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(Entity, *A, *B)) {
	if sa.Len() <= sb.Len() {
		for i, e := range sa.entities {
			if b, ok := sb.Get(e); ok {
				fn(e, &sa.values[i], b)
			}
		}
		return
	}
	for i, e := range sb.entities {
		if a, ok := sa.Get(e); ok {
			fn(e, a, &sb.values[i])
		}
	}
}

// Each3 iterates over entities that have components A, B, and C.
func Each3[A, B, C any](sa *Store[A], sb *Store[B], sc *Store[C], fn func(Entity, *A, *B, *C)) {
	// Drive from the smallest store
	smallest := sa.Len()
	which := 0
	if sb.Len() < smallest {
		smallest = sb.Len()
		which = 1
	}
	if sc.Len() < smallest {
		which = 2
	}

	switch which {
	case 0:
		for i, e := range sa.entities {
			if b, ok := sb.Get(e); ok {
				if c, ok := sc.Get(e); ok {
					fn(e, &sa.values[i], b, c)
				}
			}
		}
	case 1:
		for i, e := range sb.entities {
			if a, ok := sa.Get(e); ok {
				if c, ok := sc.Get(e); ok {
					fn(e, a, &sb.values[i], c)
				}
			}
		}
	case 2:
		for i, e := range sc.entities {
			if a, ok := sa.Get(e); ok {
				if b, ok := sb.Get(e); ok {
					fn(e, a, b, &sc.values[i])
				}
			}
		}
	}
}
