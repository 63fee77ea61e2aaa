package system

import (
	"errors"
	"testing"
	"time"

	"github.com/l1jgo/arena/internal/core/ecs"
)

func noop(name string) Factory {
	return func() (ecs.System, error) {
		return ecs.SystemFunc{Label: name, Fn: func(*ecs.Registry, time.Duration) error { return nil }}, nil
	}
}

func TestLoaderBuildsFreshSystems(t *testing.T) {
	l := NewLoader()
	builds := 0
	l.Register("movement", func() (ecs.System, error) {
		builds++
		return noop("movement")()
	})

	for i := 0; i < 2; i++ {
		s, err := l.Load("movement")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if s.Name() != "movement" {
			t.Fatalf("name = %q", s.Name())
		}
	}
	if builds != 2 {
		t.Fatalf("factory called %d times, want 2", builds)
	}
}

func TestLoaderUnknownName(t *testing.T) {
	l := NewLoader()
	_, err := l.Load("missing")
	if !errors.Is(err, ErrUnknownSystem) {
		t.Fatalf("err = %v, want ErrUnknownSystem", err)
	}
}

func TestLoaderFactoryFailure(t *testing.T) {
	l := NewLoader()
	boom := errors.New("bad config")
	l.Register("broken", func() (ecs.System, error) { return nil, boom })
	l.Register("nil", func() (ecs.System, error) { return nil, nil })
	l.Register("ok", noop("ok"))

	if _, err := l.Load("broken"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, err := l.Load("nil"); err == nil {
		t.Fatal("nil system accepted")
	}
	// A failed load does not poison the loader.
	if _, err := l.Load("ok"); err != nil {
		t.Fatalf("load ok: %v", err)
	}
	names := l.Names()
	if len(names) != 3 || names[0] != "broken" || names[2] != "ok" {
		t.Fatalf("names = %v", names)
	}
}
