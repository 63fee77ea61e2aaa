package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/l1jgo/arena/internal/core/ecs"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrNoFactory is returned when a script does not define new_system.
var ErrNoFactory = errors.New("script defines no new_system factory")

const factoryName = "new_system"

// LuaSystem is a System implemented by a Lua table with an update(self, dt)
// method. It owns its VM; the caller must Close it.
// Single-goroutine access only (game loop).
type LuaSystem struct {
	name   string
	vm     *lua.LState
	self   *lua.LTable
	update *lua.LFunction

	reg      *ecs.Registry // set only while Update runs
	bindings Bindings
	log      *zap.Logger
}

// LoadSystem runs the script at path in a fresh VM, calls its new_system
// factory and wraps the returned table. Failures affect this load only.
func LoadSystem(path string, b Bindings) (*LuaSystem, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if b.Log == nil {
		b.Log = zap.NewNop()
	}

	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	s := &LuaSystem{vm: vm, bindings: b, log: b.Log}
	if err := s.init(path, string(src)); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	s.log = b.Log.With(zap.String("system", s.name))
	return s, nil
}

func (s *LuaSystem) init(path, src string) error {
	if err := openLibs(s.vm); err != nil {
		return err
	}
	s.vm.SetGlobal("API_VERSION", lua.LNumber(1))
	s.openAPI()

	chunk, err := s.vm.LoadString(src)
	if err != nil {
		return err
	}
	s.vm.Push(chunk)
	if err := s.vm.PCall(0, lua.MultRet, nil); err != nil {
		return err
	}

	factory, ok := s.vm.GetGlobal(factoryName).(*lua.LFunction)
	if !ok {
		return ErrNoFactory
	}
	if err := s.vm.CallByParam(lua.P{
		Fn:      factory,
		NRet:    1,
		Protect: true,
	}); err != nil {
		return fmt.Errorf("%s: %w", factoryName, err)
	}
	result := s.vm.Get(-1)
	s.vm.Pop(1)

	self, ok := result.(*lua.LTable)
	if !ok {
		return fmt.Errorf("%s returned %s, want table", factoryName, result.Type())
	}
	update, ok := self.RawGetString("update").(*lua.LFunction)
	if !ok {
		return fmt.Errorf("%s: system table has no update function", factoryName)
	}
	s.self = self
	s.update = update

	s.name = lua.LVAsString(self.RawGetString("name"))
	if s.name == "" {
		s.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return nil
}

// openLibs loads the safe subset of the standard Lua libraries: no io, os
// or module loading from disk.
func openLibs(vm *lua.LState) error {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := vm.CallByParam(lua.P{
			Fn:      vm.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("open %s: %w", lib.name, err)
		}
	}
	for _, name := range []string{"dofile", "loadfile"} {
		vm.SetGlobal(name, lua.LNil)
	}
	return nil
}

func (s *LuaSystem) Name() string { return s.name }

// Update calls self:update(dt) with dt in seconds.
func (s *LuaSystem) Update(r *ecs.Registry, dt time.Duration) error {
	s.reg = r
	defer func() { s.reg = nil }()

	if err := s.vm.CallByParam(lua.P{
		Fn:      s.update,
		NRet:    0,
		Protect: true,
	}, s.self, lua.LNumber(dt.Seconds())); err != nil {
		return fmt.Errorf("lua %s: %w", s.name, err)
	}
	return nil
}

// Close releases the VM.
func (s *LuaSystem) Close() {
	s.vm.Close()
}
