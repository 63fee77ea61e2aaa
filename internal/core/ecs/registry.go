package ecs

import (
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"
)

// Registry is the single authority for simulation state. It owns the entity
// pool, one store per component type (created on first use), the ordered
// system list, and a deferred destruction queue flushed by the cleanup system.
//
// A Registry is not safe for concurrent use; it belongs to the simulation goroutine.
type Registry struct {
	pool         *EntityPool
	stores       map[reflect.Type]Removable
	erasers      []Removable
	systems      []System
	destroyQueue []Entity
	log          *zap.Logger
}

type Option func(*Registry)

// WithGenerations enables generation counters on entity ids.
func WithGenerations() Option {
	return func(r *Registry) { r.pool.versioned = true }
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) { r.log = log }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		pool:         NewEntityPool(false),
		stores:       make(map[reflect.Type]Removable, 16),
		erasers:      make([]Removable, 0, 16),
		systems:      make([]System, 0, 16),
		destroyQueue: make([]Entity, 0, 64),
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StoreOf returns the store for component type T, creating and registering
// it on first use.
func StoreOf[T any](r *Registry) *Store[T] {
	t := reflect.TypeFor[T]()
	if s, ok := r.stores[t]; ok {
		return s.(*Store[T])
	}
	s := NewStore[T]()
	r.stores[t] = s
	r.erasers = append(r.erasers, s)
	return s
}

// Spawn returns the most recently freed id, or the next never-used one.
func (r *Registry) Spawn() Entity {
	return r.pool.Create()
}

// Kill erases e from every store, then frees its id for a later Spawn.
// Killing a dead or unknown entity is a no-op.
func (r *Registry) Kill(e Entity) {
	if !r.pool.Alive(e) {
		r.log.Debug("kill on dead entity ignored", zap.Stringer("entity", e))
		return
	}
	for _, s := range r.erasers {
		s.Remove(e)
	}
	r.pool.Destroy(e)
}

func (r *Registry) Alive(e Entity) bool {
	return r.pool.Alive(e)
}

// Len returns the number of live entities.
func (r *Registry) Len() int {
	return r.pool.Len()
}

// StoreCount returns the number of component types seen so far.
func (r *Registry) StoreCount() int {
	return len(r.erasers)
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (r *Registry) MarkForDestruction(e Entity) {
	r.destroyQueue = append(r.destroyQueue, e)
}

// FlushDestroyQueue kills all queued entities. Duplicates in the queue are
// harmless because Kill ignores dead entities.
func (r *Registry) FlushDestroyQueue() int {
	n := 0
	for _, e := range r.destroyQueue {
		if r.pool.Alive(e) {
			r.Kill(e)
			n++
		}
	}
	r.destroyQueue = r.destroyQueue[:0]
	return n
}

// AddSystem appends s to the run order.
func (r *Registry) AddSystem(s System) {
	r.systems = append(r.systems, s)
}

func (r *Registry) Systems() []System {
	out := make([]System, len(r.systems))
	copy(out, r.systems)
	return out
}

// TickReport summarizes one RunSystems call.
type TickReport struct {
	Ran    int
	Failed []string
}

// RunSystems invokes every system once, in registration order. A system that
// returns an error or panics is logged and skipped; the rest of the tick runs.
func (r *Registry) RunSystems(dt time.Duration) TickReport {
	rep := TickReport{Ran: len(r.systems)}
	for _, s := range r.systems {
		if err := r.safeUpdate(s, dt); err != nil {
			r.log.Error("system update failed",
				zap.String("system", s.Name()),
				zap.Error(err),
			)
			rep.Failed = append(rep.Failed, s.Name())
		}
	}
	return rep
}

// safeUpdate executes a system with panic recovery so one bad system cannot
// halt the tick.
func (r *Registry) safeUpdate(s System, dt time.Duration) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("system %s panic: %v", s.Name(), rec)
		}
	}()
	return s.Update(r, dt)
}

// CloseSystems releases resources held by systems that implement Closer.
func (r *Registry) CloseSystems() {
	for _, s := range r.systems {
		if c, ok := s.(Closer); ok {
			c.Close()
		}
	}
}
