package scripting

import (
	"github.com/l1jgo/arena/internal/component"
	"github.com/l1jgo/arena/internal/core/ecs"
	lua "github.com/yuin/gopher-lua"
)

// openAPI installs the global arena table. Entity ids cross into Lua as
// numbers.
func (s *LuaSystem) openAPI() {
	s.vm.SetGlobal("arena", s.vm.SetFuncs(s.vm.NewTable(), map[string]lua.LGFunction{
		"spawn":         s.luaSpawn,
		"kill":          s.luaKill,
		"alive":         s.luaAlive,
		"count":         s.luaCount,
		"position":      s.luaPosition,
		"set_position":  s.luaSetPosition,
		"velocity":      s.luaVelocity,
		"set_velocity":  s.luaSetVelocity,
		"each_position": s.luaEachPosition,
		"emit":          s.luaEmit,
		"log":           s.luaLog,
	}))
}

// registry raises a Lua error when the API is used outside Update, for
// example from the new_system factory.
func (s *LuaSystem) registry(L *lua.LState) *ecs.Registry {
	if s.reg == nil {
		L.RaiseError("arena API is only available during update")
	}
	return s.reg
}

func checkEntity(L *lua.LState, n int) ecs.Entity {
	return ecs.Entity(uint64(L.CheckNumber(n)))
}

func (s *LuaSystem) luaSpawn(L *lua.LState) int {
	e := s.registry(L).Spawn()
	L.Push(lua.LNumber(e))
	return 1
}

func (s *LuaSystem) luaKill(L *lua.LState) int {
	s.registry(L).Kill(checkEntity(L, 1))
	return 0
}

func (s *LuaSystem) luaAlive(L *lua.LState) int {
	L.Push(lua.LBool(s.registry(L).Alive(checkEntity(L, 1))))
	return 1
}

func (s *LuaSystem) luaCount(L *lua.LState) int {
	L.Push(lua.LNumber(s.registry(L).Len()))
	return 1
}

func (s *LuaSystem) luaPosition(L *lua.LState) int {
	pos, ok := ecs.StoreOf[component.Position](s.registry(L)).Get(checkEntity(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(pos.X))
	L.Push(lua.LNumber(pos.Y))
	return 2
}

func (s *LuaSystem) luaSetPosition(L *lua.LState) int {
	r := s.registry(L)
	e := checkEntity(L, 1)
	if !r.Alive(e) {
		L.ArgError(1, "entity is not alive")
	}
	ecs.StoreOf[component.Position](r).Insert(e, component.Position{
		X: float32(L.CheckNumber(2)),
		Y: float32(L.CheckNumber(3)),
	})
	return 0
}

func (s *LuaSystem) luaVelocity(L *lua.LState) int {
	vel, ok := ecs.StoreOf[component.Velocity](s.registry(L)).Get(checkEntity(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(vel.VX))
	L.Push(lua.LNumber(vel.VY))
	return 2
}

func (s *LuaSystem) luaSetVelocity(L *lua.LState) int {
	r := s.registry(L)
	e := checkEntity(L, 1)
	if !r.Alive(e) {
		L.ArgError(1, "entity is not alive")
	}
	ecs.StoreOf[component.Velocity](r).Insert(e, component.Velocity{
		VX: float32(L.CheckNumber(2)),
		VY: float32(L.CheckNumber(3)),
	})
	return 0
}

// luaEachPosition calls fn(id, x, y) for every entity with a Position.
// The entity list is fixed before the first call, so fn may spawn or kill.
func (s *LuaSystem) luaEachPosition(L *lua.LState) int {
	r := s.registry(L)
	fn := L.CheckFunction(1)
	positions := ecs.StoreOf[component.Position](r)
	for _, e := range positions.Entities() {
		pos, ok := positions.Get(e)
		if !ok {
			continue
		}
		if err := L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		}, lua.LNumber(e), lua.LNumber(pos.X), lua.LNumber(pos.Y)); err != nil {
			L.RaiseError("each_position: %s", err.Error())
		}
	}
	return 0
}

func (s *LuaSystem) luaEmit(L *lua.LState) int {
	channel := L.CheckString(1)
	text := L.CheckString(2)
	ok := false
	if s.bindings.Events != nil {
		ok = s.bindings.Events.Publish(channel, []byte(text))
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (s *LuaSystem) luaLog(L *lua.LState) int {
	s.log.Info(L.CheckString(1))
	return 0
}
