package component

import "time"

// SessionRef links an ECS entity to its network connection.
// This is a reference, not the connection itself; the connection lives in net/.
type SessionRef struct {
	SessionID string
	Name      string
	JoinedAt  time.Time
}
