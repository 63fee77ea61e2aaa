package ecs

import "time"

// System is one unit of per-tick logic. Systems run on the simulation
// goroutine, one after another, so Update may touch any store without locks.
type System interface {
	Name() string
	Update(r *Registry, dt time.Duration) error
}

// SystemFunc adapts a plain function to the System interface.
type SystemFunc struct {
	Label string
	Fn    func(r *Registry, dt time.Duration) error
}

func (f SystemFunc) Name() string { return f.Label }

func (f SystemFunc) Update(r *Registry, dt time.Duration) error {
	return f.Fn(r, dt)
}

// Closer is implemented by systems that hold resources (e.g. a script VM).
type Closer interface {
	Close()
}
