package session

import (
	"sync"

	"github.com/gtv-remote/gtv-go/pkg/protocol"
)

// queue is the bounded FIFO of outbound payloads. pushFront puts a payload
// whose write failed back at the head, ignoring the bound, so a retry
// keeps the original order.
type queue struct {
	mu     sync.Mutex
	items  [][]byte
	limit  int
	notify chan struct{}
}

func newQueue(limit int) *queue {
	return &queue{limit: limit, notify: make(chan struct{}, 1)}
}

func (q *queue) push(payload []byte) error {
	q.mu.Lock()
	if len(q.items) >= q.limit {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.items = append(q.items, payload)
	q.mu.Unlock()
	q.signal()
	return nil
}

func (q *queue) pushFront(payload []byte) {
	q.mu.Lock()
	q.items = append([][]byte{payload}, q.items...)
	q.mu.Unlock()
	q.signal()
}

// pop blocks until a payload is available or stop is closed.
func (q *queue) pop(stop <-chan struct{}) ([]byte, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			p := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				q.signal()
			}
			return p, true
		}
		q.mu.Unlock()

		select {
		case <-stop:
			return nil, false
		case <-q.notify:
		}
	}
}

// drain discards everything queued and returns how many payloads were
// dropped.
func (q *queue) drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// retain keeps the payloads for which keep returns true and returns how
// many were dropped.
func (q *queue) retain(keep func([]byte) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.items[:0]
	for _, p := range q.items {
		if keep(p) {
			kept = append(kept, p)
		}
	}
	n := len(q.items) - len(kept)
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = kept
	return n
}

// userFrame reports whether payload is a key press, the only frame that
// survives a reconnect.
func userFrame(payload []byte) bool {
	return len(payload) > 0 && protocol.Decode(payload[:1]) == protocol.OpKeyInject
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// snapshot returns a copy of the queued payloads.
func (q *queue) snapshot() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][]byte, len(q.items))
	copy(out, q.items)
	return out
}

func (q *queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
