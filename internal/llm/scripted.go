package llm

import (
	"context"
	"sync"
)

// ScriptedClient replays a fixed list of continuations, cycling once the
// script is exhausted. It backs local development runs without a model
// server and the deterministic parts of the test suite.
type ScriptedClient struct {
	mu      sync.Mutex
	script  []string
	next    int
	calls   int
	prompts []string
}

var defaultScript = []string{
	"the river carried the words downstream past the sleeping village.",
	"and nobody could say where the story would bend next.",
	"a lantern flickered on the far bank, answering in slow light.",
}

// NewScriptedClient returns a client that replays script in order. A nil
// or empty script falls back to a small built-in one.
func NewScriptedClient(script []string) *ScriptedClient {
	if len(script) == 0 {
		script = defaultScript
	}
	return &ScriptedClient{script: script}
}

// Generate implements the Client interface.
func (s *ScriptedClient) Generate(ctx context.Context, prompt string, _ GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.prompts = append(s.prompts, prompt)
	out := s.script[s.next%len(s.script)]
	s.next++
	return out, nil
}

// Calls reports how many times Generate has been invoked.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Prompts returns a copy of every prompt seen so far, in call order.
func (s *ScriptedClient) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}
