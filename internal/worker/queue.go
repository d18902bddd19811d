package worker

import "sync"

// Queue collects paths reported by the watcher until the next batch takes
// them. A path already waiting is not queued twice.
type Queue struct {
	mu        sync.Mutex
	pending   []string
	enqueued  map[string]struct{}
	accepting bool
}

func NewQueue() *Queue {
	return &Queue{
		enqueued:  make(map[string]struct{}),
		accepting: true,
	}
}

// Enqueue adds path unless it is already waiting or the queue is closed.
func (q *Queue) Enqueue(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.accepting {
		return false
	}
	if _, ok := q.enqueued[path]; ok {
		return false
	}
	q.enqueued[path] = struct{}{}
	q.pending = append(q.pending, path)
	return true
}

// Take removes and returns everything waiting, oldest first.
func (q *Queue) Take() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	q.enqueued = make(map[string]struct{})
	return out
}

func (q *Queue) StopAccepting() {
	q.mu.Lock()
	q.accepting = false
	q.mu.Unlock()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
