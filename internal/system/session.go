package system

import (
	"time"

	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/handler"
	"go.uber.org/zap"
)

// SessionSystem reaps idle and inactive connections and removes the
// players they controlled.
type SessionSystem struct {
	deps        *handler.Deps
	idleTimeout time.Duration
}

func NewSessionSystem(deps *handler.Deps, idleTimeout time.Duration) *SessionSystem {
	return &SessionSystem{deps: deps, idleTimeout: idleTimeout}
}

func (s *SessionSystem) Name() string { return "session" }

func (s *SessionSystem) Update(_ *ecs.Registry, _ time.Duration) error {
	for _, r := range s.deps.Sessions.ReapIdle(s.idleTimeout) {
		s.deps.Log.Debug("連線回收",
			zap.String("session", r.Conn.ID()),
			zap.String("reason", r.Reason),
		)
		handler.Leave(r.Conn, r.Reason, s.deps)
	}
	return nil
}
