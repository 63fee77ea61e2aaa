package system

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/l1jgo/arena/internal/core/ecs"
)

// ErrUnknownSystem is returned by Load for a name with no registered factory.
var ErrUnknownSystem = errors.New("unknown system")

// Factory builds a fresh System. The caller owns the returned value.
type Factory func() (ecs.System, error)

// Loader maps system names to factories. Factories are registered at
// startup; Load keeps no reference to what it builds.
type Loader struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewLoader() *Loader {
	return &Loader{
		factories: make(map[string]Factory),
	}
}

// Register maps name to f, replacing any previous factory.
func (l *Loader) Register(name string, f Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[name] = f
}

// Load calls the factory registered for name.
func (l *Loader) Load(name string) (ecs.System, error) {
	l.mu.RLock()
	f, ok := l.factories[name]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("load %q: %w", name, ErrUnknownSystem)
	}
	s, err := f()
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	if s == nil {
		return nil, fmt.Errorf("load %q: factory returned nil system", name)
	}
	return s, nil
}

// Names returns the registered names, sorted.
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.factories))
	for n := range l.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
