package browser

import "sync"

// OpQueue serializes operations against the single browser/page pair: at
// most one operation executes at a time regardless of how many callers
// enqueue concurrently, and submission order is preserved.
type OpQueue struct {
	mu       sync.Mutex
	pending  []*queuedOp
	draining bool
}

type queuedOp struct {
	run  func()
	done chan struct{}
}

// NewOpQueue creates an empty operation queue.
func NewOpQueue() *OpQueue {
	return &OpQueue{}
}

// Do enqueues fn and blocks until it has executed. A single drain loop works
// the queue until it is empty, so an operation enqueued while a drain is in
// progress is picked up by the same pass rather than waiting for a fresh
// trigger.
func (q *OpQueue) Do(fn func()) {
	op := &queuedOp{run: fn, done: make(chan struct{})}

	q.mu.Lock()
	q.pending = append(q.pending, op)
	start := !q.draining
	if start {
		q.draining = true
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
	<-op.done
}

func (q *OpQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		op := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		op.run()
		close(op.done)
	}
}
