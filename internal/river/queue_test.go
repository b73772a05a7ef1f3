package river

import (
	"fmt"
	"sync"
	"testing"
)

// TestQueueDrainPreservesOrder verifies that tokens come back from a
// drain in the order they were enqueued.
func TestQueueDrainPreservesOrder(t *testing.T) {
	q := NewQueue()
	want := []string{"[[one]]", "[[two]]", "[[three]]"}
	for _, tok := range want {
		q.Enqueue(tok)
	}

	got := q.DrainAll()
	if len(got) != len(want) {
		t.Fatalf("drained %d tokens, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("drained[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestQueueSecondDrainEmpty verifies that an immediate second drain with
// no intervening enqueue returns nothing.
func TestQueueSecondDrainEmpty(t *testing.T) {
	q := NewQueue()
	q.Enqueue("[[word]]")

	if got := q.DrainAll(); len(got) != 1 {
		t.Fatalf("first drain returned %d tokens, want 1", len(got))
	}
	if got := q.DrainAll(); len(got) != 0 {
		t.Errorf("second drain returned %d tokens, want 0", len(got))
	}
	if q.Len() != 0 {
		t.Errorf("queue length after drains = %d, want 0", q.Len())
	}
}

// TestQueueConcurrentEnqueueDrain runs producers against a draining
// consumer and verifies every token is returned exactly once across all
// drains: none lost, none duplicated.
func TestQueueConcurrentEnqueueDrain(t *testing.T) {
	q := NewQueue()

	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(fmt.Sprintf("p%d-%d", p, i))
			}
		}(p)
	}

	seen := make(map[string]int)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	collect := func() {
		for _, tok := range q.DrainAll() {
			seen[tok]++
		}
	}
	for {
		select {
		case <-done:
			collect()
			if len(seen) != producers*perProducer {
				t.Fatalf("saw %d distinct tokens, want %d", len(seen), producers*perProducer)
			}
			for tok, count := range seen {
				if count != 1 {
					t.Errorf("token %q drained %d times, want exactly once", tok, count)
				}
			}
			return
		default:
			collect()
		}
	}
}
