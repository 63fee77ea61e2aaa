package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server binds one Socket per configured address and runs a reader
// goroutine per socket. Readers resolve the sender's Connection and push
// each datagram into the ingress queue for the game loop.
type Server struct {
	sockets     []*Socket
	table       *SessionTable
	ingress     *PacketQueue
	maxDatagram int

	shutdownOnce sync.Once
	log          *zap.Logger
}

func NewServer(cfg config.NetworkConfig, table *SessionTable, ingress *PacketQueue, log *zap.Logger) (*Server, error) {
	s := &Server{
		table:       table,
		ingress:     ingress,
		maxDatagram: cfg.MaxDatagram,
		log:         log,
	}
	for _, addr := range cfg.BindAddresses {
		sock, err := ListenSocket(addr, cfg.SendQueueSize, cfg.WriteTimeout, log)
		if err != nil {
			s.Shutdown()
			return nil, err
		}
		s.sockets = append(s.sockets, sock)
	}
	return s, nil
}

// Run blocks until ctx is cancelled, then shuts the sockets down and waits
// for the readers to exit.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sock := range s.sockets {
		sock := sock
		g.Go(func() error {
			return s.readLoop(sock)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		s.Shutdown()
		return nil
	})
	return g.Wait()
}

// readLoop runs in its own goroutine, one per socket.
func (s *Server) readLoop(sock *Socket) error {
	// One spare byte exposes datagrams the kernel would otherwise truncate.
	buf := make([]byte, s.maxDatagram+1)
	for {
		n, addr, err := sock.ReadFrom(buf)
		if err != nil {
			if sock.IsClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// ICMP errors from earlier sends surface here on some platforms.
			s.log.Debug("讀取錯誤", zap.Uint16("port", sock.LocalPort()), zap.Error(err))
			continue
		}
		if n == 0 {
			metrics.PacketsDropped.WithLabelValues("empty").Inc()
			continue
		}
		if n > s.maxDatagram {
			metrics.PacketsDropped.WithLabelValues("oversize").Inc()
			s.log.Debug("封包過大", zap.Stringer("addr", addr), zap.Int("max", s.maxDatagram))
			continue
		}

		conn, created := s.table.Resolve(sock, addr)
		if created {
			s.log.Info(fmt.Sprintf("玩家連線  session=%s  port=%d", conn.ID(), sock.LocalPort()))
		}

		// Per-connection packet rate limiter
		if !conn.Allow() {
			metrics.PacketsDropped.WithLabelValues("rate_limit").Inc()
			continue
		}
		conn.MarkReceived()

		payload := make([]byte, n)
		copy(payload, buf[:n])
		if !s.ingress.Push(ReceivedPacket{
			SessionID:  conn.ID(),
			LocalPort:  sock.LocalPort(),
			Payload:    payload,
			ReceivedAt: time.Now(),
		}) {
			metrics.PacketsDropped.WithLabelValues("queue_full").Inc()
			continue
		}
		metrics.PacketsReceived.Inc()
	}
}

// Sockets returns the bound sockets in configuration order.
func (s *Server) Sockets() []*Socket {
	return s.sockets
}

// Addrs returns the local address of every socket.
func (s *Server) Addrs() []net.Addr {
	out := make([]net.Addr, len(s.sockets))
	for i, sock := range s.sockets {
		out[i] = sock.LocalAddr()
	}
	return out
}

// Shutdown closes every socket. Connections still holding a socket see
// their pending sends fail.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		for _, sock := range s.sockets {
			if refs := sock.Refs(); refs > 0 {
				s.log.Debug("closing socket with live connections",
					zap.Uint16("port", sock.LocalPort()),
					zap.Int("refs", refs),
				)
			}
			sock.Stop()
		}
	})
}
