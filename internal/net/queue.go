package net

import (
	"sync"
	"time"
)

// ReceivedPacket is one datagram handed from a reader goroutine to the
// simulation. Payload is owned by whoever popped the packet.
type ReceivedPacket struct {
	SessionID  string
	LocalPort  uint16
	Payload    []byte
	ReceivedAt time.Time
}

// PacketQueue is the ingress FIFO between the network readers and the
// simulation goroutine. The mutex is held only while the slice changes,
// never across I/O.
//
// A capacity of 0 means unbounded. With a capacity, Push rejects the newest
// packet while the queue is full.
type PacketQueue struct {
	mu       sync.Mutex
	items    []ReceivedPacket
	capacity int
}

func NewPacketQueue(capacity int) *PacketQueue {
	return &PacketQueue{
		items:    make([]ReceivedPacket, 0, 256),
		capacity: capacity,
	}
}

// Push enqueues pkt. It returns false if the queue is at capacity.
func (q *PacketQueue) Push(pkt ReceivedPacket) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, pkt)
	return true
}

// TryPop removes and returns the oldest packet without blocking.
func (q *PacketQueue) TryPop() (ReceivedPacket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return ReceivedPacket{}, false
	}
	pkt := q.items[0]
	q.items[0] = ReceivedPacket{}
	q.items = q.items[1:]
	return pkt, true
}

// Drain removes every queued packet and returns them in arrival order.
// The simulation calls it once per tick, which bounds per-tick network
// work to whatever arrived since the previous tick.
func (q *PacketQueue) Drain() []ReceivedPacket {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = make([]ReceivedPacket, 0, cap(out))
	return out
}

// Len is a snapshot; readers may change it immediately.
func (q *PacketQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
