package net

import (
	"fmt"
	"sync"
	"testing"
)

func TestDrainReturnsPushOrderAndEmpties(t *testing.T) {
	q := NewPacketQueue(0)
	for i := 0; i < 4; i++ {
		q.Push(ReceivedPacket{SessionID: "127.0.0.1:9000", LocalPort: 4242, Payload: []byte{byte(i)}})
	}

	got := q.Drain()
	if len(got) != 4 {
		t.Fatalf("drained %d packets, want 4", len(got))
	}
	for i, pkt := range got {
		if pkt.Payload[0] != byte(i) {
			t.Fatalf("packet %d has payload %v", i, pkt.Payload)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("Len after drain = %d", q.Len())
	}
	if len(q.Drain()) != 0 {
		t.Fatal("second drain returned packets")
	}
}

func TestTryPopEmptyDoesNotBlock(t *testing.T) {
	q := NewPacketQueue(0)
	if _, ok := q.TryPop(); ok {
		t.Fatal("TryPop on empty queue succeeded")
	}
	q.Push(ReceivedPacket{Payload: []byte("a")})
	q.Push(ReceivedPacket{Payload: []byte("b")})
	pkt, ok := q.TryPop()
	if !ok || string(pkt.Payload) != "a" {
		t.Fatalf("TryPop = %q, %v", pkt.Payload, ok)
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d", q.Len())
	}
}

func TestBoundedQueueRejectsWhenFull(t *testing.T) {
	q := NewPacketQueue(1)
	if !q.Push(ReceivedPacket{}) {
		t.Fatal("first push rejected")
	}
	if q.Push(ReceivedPacket{}) {
		t.Fatal("push beyond capacity accepted")
	}
	q.Drain()
	if !q.Push(ReceivedPacket{}) {
		t.Fatal("push after drain rejected")
	}
}

func TestConcurrentPushersSingleDrainer(t *testing.T) {
	q := NewPacketQueue(0)
	const writers, each = 6, 500
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Push(ReceivedPacket{SessionID: fmt.Sprint(w), Payload: []byte{byte(i % 256)}})
			}
		}(w)
	}

	total := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		total += len(q.Drain())
		select {
		case <-done:
			total += len(q.Drain())
			if total != writers*each {
				t.Fatalf("drained %d packets, want %d", total, writers*each)
			}
			return
		default:
		}
	}
}
