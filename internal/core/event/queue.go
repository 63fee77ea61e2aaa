package event

import "sync"

// Message is a channel-tagged payload routed between subsystems, e.g. from
// the simulation to presentation or admin consumers.
type Message struct {
	Channel string
	Payload []byte
}

// Queue is a mutex-guarded FIFO of Messages shared by producers and
// consumers on different goroutines. The lock is held only for the slice
// mutation itself.
//
// A capacity of 0 means unbounded. With a capacity, Push rejects new
// messages while the queue is full.
type Queue struct {
	mu       sync.Mutex
	items    []Message
	capacity int
}

func NewQueue(capacity int) *Queue {
	return &Queue{
		items:    make([]Message, 0, 64),
		capacity: capacity,
	}
}

// Push appends m. It returns false if the queue is at capacity.
func (q *Queue) Push(m Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, m)
	return true
}

// Publish is shorthand for Push(Message{Channel: channel, Payload: payload}).
func (q *Queue) Publish(channel string, payload []byte) bool {
	return q.Push(Message{Channel: channel, Payload: payload})
}

// TryPop removes and returns the oldest message without blocking.
func (q *Queue) TryPop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Message{}, false
	}
	m := q.items[0]
	q.items[0] = Message{}
	q.items = q.items[1:]
	return m, true
}

// PopForChannel removes and returns the oldest message tagged with channel.
// Every other message keeps its relative order. This is a linear scan of
// the whole queue, and it lets a matched message overtake older messages
// on other channels.
func (q *Queue) PopForChannel(channel string) (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		if q.items[i].Channel != channel {
			continue
		}
		m := q.items[i]
		copy(q.items[i:], q.items[i+1:])
		q.items[len(q.items)-1] = Message{}
		q.items = q.items[:len(q.items)-1]
		return m, true
	}
	return Message{}, false
}

// Drain removes and returns every queued message in arrival order.
func (q *Queue) Drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = make([]Message, 0, cap(out))
	return out
}

// Len is a snapshot; concurrent producers may change it immediately.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
