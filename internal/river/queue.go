package river

import "sync"

// Queue buffers contributed tokens between HTTP writers and the
// generation cycle. Arrival order is preserved and each token is handed
// out by exactly one DrainAll call; growth is bounded upstream by the
// contribution rate limiter rather than by the queue itself.
type Queue struct {
	mu     sync.Mutex
	tokens []string
}

// NewQueue returns an empty contribution queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a token. Callers only wait for the short exclusion
// window shared with a concurrent drain.
func (q *Queue) Enqueue(token string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tokens = append(q.tokens, token)
}

// DrainAll removes and returns every queued token in enqueue order.
// A drain with nothing queued returns nil, and a token enqueued during a
// drain is picked up by the next one, never lost or duplicated.
func (q *Queue) DrainAll() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tokens) == 0 {
		return nil
	}
	drained := q.tokens
	q.tokens = nil
	return drained
}

// Len reports how many tokens are currently waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tokens)
}
