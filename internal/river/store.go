// Package river implements the shared story river: the versioned text
// store, the contribution queue, and the generation cycle that advances
// the narrative.
package river

import "sync"

// State is one atomic snapshot of the river: the cumulative text, its
// monotonically increasing sequence number, and the fragment appended by
// the most recent publish. The JSON field names match the /text payload.
type State struct {
	Text     string `json:"text"`
	Sequence int64  `json:"sequence"`
	Delta    string `json:"new_text"`
}

// Store is the single source of truth for the river. Reads take a shared
// lock so unbounded pollers never wait on the generation cycle; publishes
// take the exclusive lock so a reader can never observe a sequence that
// does not belong to the text next to it.
type Store struct {
	mu        sync.RWMutex
	state     State
	maxLength int
}

// NewStore creates a store seeded with the given text at sequence 0.
// maxLength bounds the river in runes; values below 1 fall back to the
// default used by the reference deployment.
func NewStore(maxLength int, seed string) *Store {
	if maxLength < 1 {
		maxLength = DefaultMaxLength
	}
	return &Store{
		state:     State{Text: seed, Sequence: 0, Delta: seed},
		maxLength: maxLength,
	}
}

// Current returns an atomic snapshot of the river. It never blocks behind
// a publish for longer than the lock handoff and is safe for any number
// of concurrent callers.
func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Publish stores a new river version under exclusion: the candidate text
// is trimmed to its trailing maxLength runes (the oldest content is what
// gets dropped), the sequence increments by exactly one, and the full new
// triple is returned. Only the generation cycle calls Publish, but the
// store enforces its own exclusion regardless.
func (s *Store) Publish(fullText, delta string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runes := []rune(fullText); len(runes) > s.maxLength {
		fullText = string(runes[len(runes)-s.maxLength:])
	}

	s.state = State{
		Text:     fullText,
		Sequence: s.state.Sequence + 1,
		Delta:    delta,
	}
	return s.state
}

// Restore overwrites the store with a previously snapshotted state so the
// sequence continues from where a prior run left off. Intended for
// startup, before the generation cycle is running.
func (s *Store) Restore(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runes := []rune(state.Text); len(runes) > s.maxLength {
		state.Text = string(runes[len(runes)-s.maxLength:])
	}
	s.state = state
}
