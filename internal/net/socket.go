package net

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/l1jgo/arena/internal/metrics"
	"go.uber.org/zap"
)

type sendJob struct {
	conn *Connection
	data []byte
}

// Socket is one bound UDP port shared by every Connection that arrived on
// it. Connections hold counted references; only the Server closes it.
//
// Outgoing datagrams go through a bounded queue drained by a single writer
// goroutine, which is also the only place a send failure is observed.
type Socket struct {
	conn         *net.UDPConn
	port         uint16
	sendCh       chan sendJob
	writeTimeout time.Duration

	refs     atomic.Int32
	closed   atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	log *zap.Logger
}

// ListenSocket binds addr and starts the writer goroutine.
func ListenSocket(addr string, sendQueue int, writeTimeout time.Duration, log *zap.Logger) (*Socket, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if sendQueue <= 0 {
		sendQueue = 1
	}
	port := uint16(conn.LocalAddr().(*net.UDPAddr).Port)
	s := &Socket{
		conn:         conn,
		port:         port,
		sendCh:       make(chan sendJob, sendQueue),
		writeTimeout: writeTimeout,
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
		log:          log.With(zap.Uint16("port", port)),
	}
	go s.writeLoop()
	return s, nil
}

func (s *Socket) LocalPort() uint16 { return s.port }

func (s *Socket) LocalAddr() net.Addr { return s.conn.LocalAddr() }

func (s *Socket) Acquire() { s.refs.Add(1) }

func (s *Socket) Release() { s.refs.Add(-1) }

// Refs returns the number of connections currently holding the socket.
func (s *Socket) Refs() int { return int(s.refs.Load()) }

func (s *Socket) IsClosed() bool { return s.closed.Load() }

// ReadFrom reads one datagram. IPv4-mapped sources are unmapped so that
// ids look like "127.0.0.1:9000".
func (s *Socket) ReadFrom(buf []byte) (int, netip.AddrPort, error) {
	n, addr, err := s.conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		return 0, netip.AddrPort{}, err
	}
	return n, netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port()), nil
}

// enqueue hands a datagram to the writer without blocking. A full queue
// drops the datagram.
func (s *Socket) enqueue(c *Connection, data []byte) {
	select {
	case <-s.stopCh:
		metrics.SendFailures.WithLabelValues("closed").Inc()
		c.fail(net.ErrClosed)
		return
	default:
	}
	select {
	case s.sendCh <- sendJob{conn: c, data: data}:
	default:
		metrics.SendFailures.WithLabelValues("queue_full").Inc()
		s.log.Debug("send queue full, datagram dropped", zap.String("session", c.ID()))
	}
}

// Close tears down the UDP socket. The writer keeps running until Stop and
// fails whatever is still queued, so Connections observe the closure.
func (s *Socket) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.conn.Close()
}

// Stop closes the socket and waits for the writer goroutine to exit.
func (s *Socket) Stop() {
	s.Close()
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.done
}

func (s *Socket) writeLoop() {
	defer close(s.done)
	for {
		select {
		case job := <-s.sendCh:
			s.write(job)
		case <-s.stopCh:
			for {
				select {
				case job := <-s.sendCh:
					metrics.SendFailures.WithLabelValues("closed").Inc()
					job.conn.fail(net.ErrClosed)
				default:
					return
				}
			}
		}
	}
}

// write performs one datagram write and runs its completion: activity on
// success, deactivation on failure.
func (s *Socket) write(job sendJob) {
	if s.writeTimeout > 0 && !s.closed.Load() {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	_, err := s.conn.WriteToUDPAddrPort(job.data, job.conn.Addr())
	if err != nil {
		reason := "write"
		if errors.Is(err, net.ErrClosed) {
			reason = "closed"
		}
		metrics.SendFailures.WithLabelValues(reason).Inc()
		job.conn.fail(err)
		return
	}
	metrics.DatagramsSent.Inc()
	job.conn.completed()
}
