package world

import (
	"net/netip"
	"testing"
	"time"

	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/net"
	"go.uber.org/zap"
)

func TestGridNearby(t *testing.T) {
	g := NewGrid(10)
	g.Insert(1, 5, 5)
	g.Insert(2, 14, 5)   // neighbouring cell
	g.Insert(3, 35, 35)  // far away
	g.Insert(4, -0.5, 5) // negative coordinates land in cell -1

	got := map[ecs.Entity]bool{}
	for _, e := range g.Nearby(nil, 5, 5) {
		got[e] = true
	}
	if !got[1] || !got[2] || !got[4] || got[3] {
		t.Fatalf("nearby = %v", got)
	}

	g.Clear()
	if n := len(g.Nearby(nil, 5, 5)); n != 0 {
		t.Fatalf("cleared grid returned %d entities", n)
	}
}

func TestPlayersRebindOnReconnect(t *testing.T) {
	sock, err := net.ListenSocket("127.0.0.1:0", 4, time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer sock.Stop()

	addr := netip.MustParseAddrPort("127.0.0.1:9000")
	oldConn := net.NewConnection(sock, addr, nil, zap.NewNop())
	newConn := net.NewConnection(sock, addr, nil, zap.NewNop())

	ps := NewPlayers()
	ps.Bind(&Player{Conn: oldConn, Entity: 1})
	prev := ps.Bind(&Player{Conn: newConn, Entity: 2})
	if prev == nil || prev.Entity != 1 {
		t.Fatalf("Bind did not return previous binding: %+v", prev)
	}

	if ps.Unbind(oldConn) != nil {
		t.Fatal("stale connection evicted the new binding")
	}
	if p := ps.Get("127.0.0.1:9000"); p == nil || p.Entity != 2 {
		t.Fatalf("binding = %+v", p)
	}
	if p := ps.Unbind(newConn); p == nil || p.Entity != 2 {
		t.Fatalf("Unbind = %+v", p)
	}
	if ps.Len() != 0 {
		t.Fatalf("Len = %d", ps.Len())
	}
}
