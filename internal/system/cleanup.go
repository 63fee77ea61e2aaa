package system

import (
	"time"

	"github.com/l1jgo/arena/internal/core/ecs"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end.
type CleanupSystem struct{}

func NewCleanupSystem() *CleanupSystem {
	return &CleanupSystem{}
}

func (s *CleanupSystem) Name() string { return "cleanup" }

func (s *CleanupSystem) Update(r *ecs.Registry, _ time.Duration) error {
	r.FlushDestroyQueue()
	return nil
}
