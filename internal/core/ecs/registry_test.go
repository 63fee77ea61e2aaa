package ecs

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

type position struct{ X, Y float32 }
type velocity struct{ VX, VY float32 }
type tag struct{}

func TestSpawnReusesFreedIDsLIFO(t *testing.T) {
	r := NewRegistry()
	e0 := r.Spawn()
	e1 := r.Spawn()
	e2 := r.Spawn()
	if e0 != 0 || e1 != 1 || e2 != 2 {
		t.Fatalf("expected ids 0,1,2 got %v,%v,%v", e0, e1, e2)
	}

	r.Kill(e0)
	r.Kill(e2)

	if got := r.Spawn(); got != e2 {
		t.Fatalf("expected last freed id %v, got %v", e2, got)
	}
	if got := r.Spawn(); got != e0 {
		t.Fatalf("expected freed id %v, got %v", e0, got)
	}
	if got := r.Spawn(); got != 3 {
		t.Fatalf("expected fresh id 3, got %v", got)
	}
}

func TestLiveIDsNeverCollide(t *testing.T) {
	for _, versioned := range []bool{false, true} {
		var opts []Option
		if versioned {
			opts = append(opts, WithGenerations())
		}
		r := NewRegistry(opts...)
		rng := rand.New(rand.NewSource(7))
		live := make(map[uint32]Entity)
		var order []Entity

		for i := 0; i < 5000; i++ {
			if len(order) == 0 || rng.Intn(3) != 0 {
				e := r.Spawn()
				if prev, dup := live[e.Index()]; dup {
					t.Fatalf("versioned=%v: index %d handed out twice (%v, %v)", versioned, e.Index(), prev, e)
				}
				live[e.Index()] = e
				order = append(order, e)
				continue
			}
			j := rng.Intn(len(order))
			e := order[j]
			order[j] = order[len(order)-1]
			order = order[:len(order)-1]
			r.Kill(e)
			delete(live, e.Index())
		}
		if r.Len() != len(live) {
			t.Fatalf("versioned=%v: Len() = %d, want %d", versioned, r.Len(), len(live))
		}
	}
}

func TestKillErasesFromEveryStore(t *testing.T) {
	r := NewRegistry()
	pos := StoreOf[position](r)
	vel := StoreOf[velocity](r)
	tags := StoreOf[tag](r)

	a := r.Spawn()
	b := r.Spawn()
	pos.Insert(a, position{X: 1})
	vel.Insert(a, velocity{VX: 2})
	pos.Insert(b, position{X: 3})
	if r.StoreCount() != 3 {
		t.Fatalf("StoreCount = %d, want 3", r.StoreCount())
	}

	r.Kill(a)

	if pos.Has(a) || vel.Has(a) || tags.Has(a) {
		t.Fatal("killed entity still present in a store")
	}
	if !pos.Has(b) {
		t.Fatal("unrelated entity lost its component")
	}
	if p, _ := pos.Get(b); p.X != 3 {
		t.Fatalf("unrelated component corrupted: %+v", p)
	}

	// A store created after the kill must not see a reused id's old data.
	c := r.Spawn()
	if c != a {
		t.Fatalf("expected id reuse, got %v", c)
	}
	if pos.Has(c) || vel.Has(c) {
		t.Fatal("reused id inherited components")
	}
}

func TestDoubleKillDoesNotDuplicateFreeList(t *testing.T) {
	r := NewRegistry()
	e := r.Spawn()
	r.Kill(e)
	r.Kill(e)
	if r.pool.Free() != 1 {
		t.Fatalf("free list holds %d ids, want 1", r.pool.Free())
	}

	first := r.Spawn()
	second := r.Spawn()
	if first == second {
		t.Fatalf("double kill produced duplicate id %v", first)
	}
}

func TestKillUnknownEntityIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Kill(Entity(42))
	if r.pool.Free() != 0 {
		t.Fatalf("unknown kill grew the free list to %d", r.pool.Free())
	}
	if got := r.Spawn(); got != 0 {
		t.Fatalf("expected fresh id 0, got %v", got)
	}
}

func TestGenerationsRejectStaleHandles(t *testing.T) {
	r := NewRegistry(WithGenerations())
	pos := StoreOf[position](r)

	stale := r.Spawn()
	pos.Insert(stale, position{X: 9})
	r.Kill(stale)

	fresh := r.Spawn()
	if fresh.Index() != stale.Index() {
		t.Fatalf("expected index reuse, got %v", fresh)
	}
	if fresh == stale {
		t.Fatal("generation did not advance")
	}
	if r.Alive(stale) {
		t.Fatal("stale handle reported alive")
	}
	pos.Insert(fresh, position{X: 1})
	if _, ok := pos.Get(stale); ok {
		t.Fatal("stale handle aliased the new entity's component")
	}
	r.Kill(stale)
	if !r.Alive(fresh) {
		t.Fatal("kill through stale handle destroyed the new entity")
	}
}

func TestWithoutGenerationsStaleHandleAliases(t *testing.T) {
	r := NewRegistry()
	stale := r.Spawn()
	r.Kill(stale)
	fresh := r.Spawn()
	if fresh != stale {
		t.Fatalf("expected plain id reuse, got %v vs %v", fresh, stale)
	}
	if !r.Alive(stale) {
		t.Fatal("without generations the old handle refers to the new entity")
	}
}

func TestFlushDestroyQueue(t *testing.T) {
	r := NewRegistry()
	pos := StoreOf[position](r)
	a := r.Spawn()
	b := r.Spawn()
	pos.Insert(a, position{})
	pos.Insert(b, position{})

	pos.Each(func(e Entity, _ *position) {
		r.MarkForDestruction(e)
	})
	r.MarkForDestruction(a)
	if !r.Alive(a) {
		t.Fatal("marked entity destroyed before flush")
	}

	if n := r.FlushDestroyQueue(); n != 2 {
		t.Fatalf("flushed %d entities, want 2", n)
	}
	if r.Len() != 0 || pos.Len() != 0 {
		t.Fatalf("expected empty world, got %d entities / %d positions", r.Len(), pos.Len())
	}
}

type recordingSystem struct {
	name string
	log  *[]string
	err  error
	pan  bool
}

func (s *recordingSystem) Name() string { return s.name }

func (s *recordingSystem) Update(_ *Registry, _ time.Duration) error {
	*s.log = append(*s.log, s.name)
	if s.pan {
		panic("boom")
	}
	return s.err
}

func TestRunSystemsOrderAndOnce(t *testing.T) {
	r := NewRegistry()
	var calls []string
	for _, n := range []string{"input", "movement", "collision", "output"} {
		r.AddSystem(&recordingSystem{name: n, log: &calls})
	}

	rep := r.RunSystems(16 * time.Millisecond)
	want := []string{"input", "movement", "collision", "output"}
	if len(calls) != len(want) {
		t.Fatalf("got %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("got %v, want %v", calls, want)
		}
	}
	if rep.Ran != 4 || len(rep.Failed) != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestRunSystemsIsolatesFailures(t *testing.T) {
	r := NewRegistry()
	var calls []string
	r.AddSystem(&recordingSystem{name: "a", log: &calls})
	r.AddSystem(&recordingSystem{name: "bad", log: &calls, err: errors.New("malformed collider")})
	r.AddSystem(&recordingSystem{name: "panicky", log: &calls, pan: true})
	r.AddSystem(&recordingSystem{name: "z", log: &calls})

	rep := r.RunSystems(time.Millisecond)
	if len(calls) != 4 || calls[3] != "z" {
		t.Fatalf("tick aborted early: %v", calls)
	}
	if len(rep.Failed) != 2 || rep.Failed[0] != "bad" || rep.Failed[1] != "panicky" {
		t.Fatalf("unexpected failures %v", rep.Failed)
	}
}

func TestSystemFunc(t *testing.T) {
	r := NewRegistry()
	var got time.Duration
	r.AddSystem(SystemFunc{Label: "fn", Fn: func(_ *Registry, dt time.Duration) error {
		got = dt
		return nil
	}})
	r.RunSystems(5 * time.Millisecond)
	if got != 5*time.Millisecond {
		t.Fatalf("dt = %v", got)
	}
	if r.Systems()[0].Name() != "fn" {
		t.Fatal("unexpected system name")
	}
}
