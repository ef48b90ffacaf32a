package widget

import "sync"

// callbackQueue carries timer callbacks from the clock's goroutine to the
// tree's owner.
type callbackQueue struct {
	mu    sync.Mutex
	fns   []func()
	ready chan struct{}
}

func newCallbackQueue() *callbackQueue {
	return &callbackQueue{ready: make(chan struct{}, 1)}
}

func (q *callbackQueue) post(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *callbackQueue) drain() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	fns := q.fns
	q.fns = nil
	return fns
}

// Pending is signalled when a click timer has expired and its callback
// waits for RunPending. It is nil when Options supplied a Clock or a
// Dispatch func.
func (t *Tree) Pending() <-chan struct{} {
	if t.queue == nil {
		return nil
	}
	return t.queue.ready
}

// RunPending runs queued timer callbacks on the calling goroutine and
// reports how many ran.
func (t *Tree) RunPending() int {
	if t.queue == nil {
		return 0
	}
	fns := t.queue.drain()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}
