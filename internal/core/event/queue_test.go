package event

import (
	"fmt"
	"sync"
	"testing"
)

func msg(ch, body string) Message {
	return Message{Channel: ch, Payload: []byte(body)}
}

func bodies(ms []Message) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m.Payload)
	}
	return out
}

func TestPopForChannelPreservesOrder(t *testing.T) {
	q := NewQueue(0)
	q.Push(msg("ch1", "A"))
	q.Push(msg("ch2", "B"))
	q.Push(msg("ch1", "C"))

	m, ok := q.PopForChannel("ch1")
	if !ok || string(m.Payload) != "A" {
		t.Fatalf("got %q ok=%v, want A", m.Payload, ok)
	}

	rest := bodies(q.Drain())
	if len(rest) != 2 || rest[0] != "B" || rest[1] != "C" {
		t.Fatalf("drain = %v, want [B C]", rest)
	}
}

func TestPopForChannelMiss(t *testing.T) {
	q := NewQueue(0)
	q.Push(msg("ch2", "B"))
	if _, ok := q.PopForChannel("ch1"); ok {
		t.Fatal("expected no match")
	}
	if q.Len() != 1 {
		t.Fatalf("miss changed the queue: len %d", q.Len())
	}
}

func TestTryPopEmpty(t *testing.T) {
	q := NewQueue(0)
	if _, ok := q.TryPop(); ok {
		t.Fatal("TryPop on empty queue returned a message")
	}
	if q.Len() != 0 {
		t.Fatal("empty queue changed")
	}
}

func TestDrainFIFOAndEmpties(t *testing.T) {
	q := NewQueue(0)
	for i := 0; i < 5; i++ {
		q.Publish("c", []byte(fmt.Sprint(i)))
	}
	m, _ := q.TryPop()
	if string(m.Payload) != "0" {
		t.Fatalf("TryPop = %q", m.Payload)
	}
	got := bodies(q.Drain())
	if fmt.Sprint(got) != "[1 2 3 4]" {
		t.Fatalf("drain = %v", got)
	}
	if q.Len() != 0 {
		t.Fatalf("len after drain = %d", q.Len())
	}
}

func TestCapacityRejectsNewest(t *testing.T) {
	q := NewQueue(2)
	if !q.Publish("c", []byte("a")) || !q.Publish("c", []byte("b")) {
		t.Fatal("push under capacity rejected")
	}
	if q.Publish("c", []byte("c")) {
		t.Fatal("push over capacity accepted")
	}
	if got := bodies(q.Drain()); fmt.Sprint(got) != "[a b]" {
		t.Fatalf("drain = %v", got)
	}
}

func TestConcurrentProducers(t *testing.T) {
	q := NewQueue(0)
	const producers, each = 8, 200
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Publish(fmt.Sprint(p), []byte(fmt.Sprint(i)))
			}
		}(p)
	}
	wg.Wait()

	// Per-producer order must survive interleaving.
	next := make(map[string]int)
	for _, m := range q.Drain() {
		want := fmt.Sprint(next[m.Channel])
		if string(m.Payload) != want {
			t.Fatalf("channel %s: got %s want %s", m.Channel, m.Payload, want)
		}
		next[m.Channel]++
	}
	for p := 0; p < producers; p++ {
		if next[fmt.Sprint(p)] != each {
			t.Fatalf("producer %d delivered %d messages", p, next[fmt.Sprint(p)])
		}
	}
}
