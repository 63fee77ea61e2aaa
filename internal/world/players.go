package world

import (
	"sort"

	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/net"
)

// Player binds one connection to the entity it controls.
type Player struct {
	Conn   *net.Connection
	Entity ecs.Entity
	Name   string
}

// Players indexes joined players by session id.
// Accessed only from the game loop goroutine; no locks.
type Players struct {
	bySession map[string]*Player
}

func NewPlayers() *Players {
	return &Players{
		bySession: make(map[string]*Player, 64),
	}
}

// Bind records p and returns whatever was bound to the same session before.
func (s *Players) Bind(p *Player) *Player {
	id := p.Conn.ID()
	prev := s.bySession[id]
	s.bySession[id] = p
	return prev
}

func (s *Players) Get(sessionID string) *Player {
	return s.bySession[sessionID]
}

// Unbind removes the binding for conn's session, but only if it still
// belongs to conn. A reconnect rebinds the same session id to a new
// Connection, and the old one must not evict it.
func (s *Players) Unbind(conn *net.Connection) *Player {
	p := s.bySession[conn.ID()]
	if p == nil || p.Conn != conn {
		return nil
	}
	delete(s.bySession, conn.ID())
	return p
}

func (s *Players) Len() int {
	return len(s.bySession)
}

// Each visits players in session id order.
func (s *Players) Each(fn func(*Player)) {
	ids := make([]string, 0, len(s.bySession))
	for id := range s.bySession {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fn(s.bySession[id])
	}
}
