package store

import "sync"

// task is one unit of work for the writer goroutine.
type task struct {
	action any
	run    func()
}

// queue is an unbounded FIFO with a single consumer. Producers never block, which
// keeps Dispatch non-blocking even when it is called from middleware or observers
// running on the consumer itself.
type queue struct {
	mu     sync.Mutex
	items  []task
	closed bool
	ready  chan struct{}
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

// push appends a task. It reports false once the queue has been closed.
func (q *queue) push(t task) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, t)
	q.mu.Unlock()
	q.signal()
	return true
}

// take removes every pending task, in order.
func (q *queue) take() ([]task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items, q.closed
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
