package net

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/l1jgo/arena/internal/config"
	"go.uber.org/zap"
)

func startServer(t *testing.T, binds ...string) (*Server, *SessionTable, *PacketQueue) {
	t.Helper()
	cfg := config.Default().Network
	cfg.BindAddresses = binds
	cfg.PacketsPerSecond = 0

	table := NewSessionTable(cfg.PacketsPerSecond, cfg.PacketBurst, zap.NewNop())
	ingress := NewPacketQueue(0)
	srv, err := NewServer(cfg, table, ingress, zap.NewNop())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("run: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv, table, ingress
}

func dial(t *testing.T, addr net.Addr) *net.UDPConn {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, addr.(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerPushesTaggedPackets(t *testing.T) {
	srv, table, ingress := startServer(t, "127.0.0.1:0", "127.0.0.1:0")
	addrs := srv.Addrs()

	a := dial(t, addrs[0])
	b := dial(t, addrs[1])
	a.Write([]byte{1, 'a'})
	waitFor(t, "first packet", func() bool { return ingress.Len() == 1 })
	b.Write([]byte{2, 'b'})
	waitFor(t, "second packet", func() bool { return ingress.Len() == 2 })

	pkts := ingress.Drain()
	if string(pkts[0].Payload) != "\x01a" || string(pkts[1].Payload) != "\x02b" {
		t.Fatalf("payloads %q %q", pkts[0].Payload, pkts[1].Payload)
	}
	if pkts[0].SessionID != a.LocalAddr().String() {
		t.Fatalf("session id %q, want %q", pkts[0].SessionID, a.LocalAddr().String())
	}
	if pkts[0].LocalPort != srv.Sockets()[0].LocalPort() || pkts[1].LocalPort != srv.Sockets()[1].LocalPort() {
		t.Fatal("local ports not tagged")
	}
	if table.Len() != 2 {
		t.Fatalf("sessions = %d", table.Len())
	}
}

func TestServerRepliesThroughConnection(t *testing.T) {
	srv, table, ingress := startServer(t, "127.0.0.1:0")
	client := dial(t, srv.Addrs()[0])
	client.Write([]byte("ping"))
	waitFor(t, "packet", func() bool { return ingress.Len() == 1 })

	pkt, _ := ingress.TryPop()
	conn, ok := table.Get(pkt.SessionID)
	if !ok {
		t.Fatal("no connection for session")
	}
	conn.Send([]byte("pong"))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(buf[:n]) != "pong" {
		t.Fatalf("client got %q", buf[:n])
	}
}

func TestShutdownFailsPendingSends(t *testing.T) {
	srv, table, ingress := startServer(t, "127.0.0.1:0")
	client := dial(t, srv.Addrs()[0])
	client.Write([]byte("hi"))
	waitFor(t, "packet", func() bool { return ingress.Len() == 1 })

	pkt, _ := ingress.TryPop()
	conn, _ := table.Get(pkt.SessionID)
	srv.Shutdown()

	conn.Send([]byte("bye"))
	if conn.IsActive() {
		t.Fatal("send after shutdown left connection active")
	}
}

func TestServerDropsOversizeDatagrams(t *testing.T) {
	srv, _, ingress := startServer(t, "127.0.0.1:0")
	client := dial(t, srv.Addrs()[0])

	limit := config.Default().Network.MaxDatagram
	client.Write(make([]byte, limit+1))
	full := make([]byte, limit)
	full[0] = 7
	client.Write(full)
	waitFor(t, "datagram at the limit", func() bool { return ingress.Len() == 1 })

	pkt, _ := ingress.TryPop()
	if len(pkt.Payload) != limit || pkt.Payload[0] != 7 {
		t.Fatalf("payload len %d, want %d", len(pkt.Payload), limit)
	}
	if ingress.Len() != 0 {
		t.Fatal("oversize datagram pushed")
	}
}
