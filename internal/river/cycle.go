package river

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/Tyrowin/storyriver/internal/llm"
	"github.com/Tyrowin/storyriver/internal/metrics"
)

// ErrCycleBusy is returned when a tick finds a previous generation still
// running. Skipping the tick is the designed response, not a failure.
var ErrCycleBusy = errors.New("generation already in progress")

// CycleConfig tunes the generation cycle. Zero values fall back to the
// reference deployment's settings.
type CycleConfig struct {
	Interval      time.Duration
	Timeout       time.Duration
	ContextWindow int
	MaxNewTokens  int
	DeltaLimit    int
	FallbackSeed  string
	Sampling      llm.GenerationParams
}

// DefaultSampling returns the fixed sampling configuration used for every
// continuation. These are operator constants, never user-controlled.
func DefaultSampling() llm.GenerationParams {
	return llm.GenerationParams{
		Temperature:   llm.Float32(0.7),
		TopP:          llm.Float32(0.9),
		TopK:          llm.Int(40),
		RepeatPenalty: llm.Float32(1.3),
	}
}

func (cfg CycleConfig) withDefaults() CycleConfig {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = DefaultContextWindow
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = 30
	}
	if cfg.DeltaLimit <= 0 {
		cfg.DeltaLimit = DefaultDeltaLimit
	}
	if cfg.FallbackSeed == "" {
		cfg.FallbackSeed = DefaultFallbackSeed
	}
	if cfg.Sampling.Temperature == nil && cfg.Sampling.TopP == nil &&
		cfg.Sampling.TopK == nil && cfg.Sampling.RepeatPenalty == nil {
		stop := cfg.Sampling.Stop
		cfg.Sampling = DefaultSampling()
		cfg.Sampling.Stop = stop
	}
	return cfg
}

// Cycle is the single producer that advances the river. One long-lived
// goroutine runs the loop; the exclusivity token guards against a slow
// external call overlapping the next tick.
type Cycle struct {
	store      *Store
	queue      *Queue
	client     llm.Client
	cfg        CycleConfig
	generating atomic.Bool
	snapshots  *SnapshotFile
	onPublish  func(State)

	// perm picks random insertion slots; swapped out in tests for a
	// deterministic ordering.
	perm func(n int) []int
}

// NewCycle wires the cycle to its store, queue, and generation backend.
func NewCycle(store *Store, queue *Queue, client llm.Client, cfg CycleConfig) *Cycle {
	return &Cycle{
		store:  store,
		queue:  queue,
		client: client,
		cfg:    cfg.withDefaults(),
		perm:   rand.Perm,
	}
}

// UseSnapshots enables best-effort snapshotting of every published state.
func (c *Cycle) UseSnapshots(f *SnapshotFile) {
	c.snapshots = f
}

// NotifyPublish registers a callback invoked with every published state,
// used to push updates to stream subscribers. The callback runs on the
// cycle goroutine and must not block.
func (c *Cycle) NotifyPublish(fn func(State)) {
	c.onPublish = fn
}

// Run loops until ctx is cancelled, generating on a self-correcting
// cadence: each sleep is the configured interval minus the time the tick
// itself took, floored at zero. A failed tick never stops the loop.
func (c *Cycle) Run(ctx context.Context) {
	slog.Info("generation cycle started", "interval", c.cfg.Interval)
	for {
		started := time.Now()
		c.tick(ctx)

		pause := c.cfg.Interval - time.Since(started)
		if pause < 0 {
			pause = 0
		}
		select {
		case <-ctx.Done():
			slog.Info("generation cycle stopped")
			return
		case <-time.After(pause):
		}
	}
}

// tick runs one guarded iteration. The recover is the outermost
// catch-all: whatever happens inside a single generation, the loop and
// the store survive it.
func (c *Cycle) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.Generations.WithLabelValues("failed").Inc()
			slog.Error("generation tick panicked", "panic", r)
		}
	}()

	state, err := c.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrCycleBusy):
		metrics.Generations.WithLabelValues("skipped").Inc()
		slog.Warn("generation still in progress, skipping tick")
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		metrics.Generations.WithLabelValues("failed").Inc()
		slog.Error("generation failed", "error", err)
	default:
		metrics.Generations.WithLabelValues("published").Inc()
		metrics.Sequence.Set(float64(state.Sequence))
		slog.Info("river advanced", "sequence", state.Sequence, "delta", state.Delta)
	}
}

// RunOnce performs a single generation if none is in progress and returns
// the published state. The exclusivity token is released on every exit
// path.
func (c *Cycle) RunOnce(ctx context.Context) (State, error) {
	if !c.generating.CompareAndSwap(false, true) {
		return State{}, ErrCycleBusy
	}
	defer c.generating.Store(false)
	return c.step(ctx)
}

func (c *Cycle) step(ctx context.Context) (State, error) {
	snapshot := c.store.Current()
	prompt := c.contextWindow(snapshot.Text)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		// The river text can drift into something the model refuses to
		// continue; one retry from the fixed seed bounds the failure.
		slog.Warn("generation from river context failed, retrying from seed", "error", err)
		prompt = c.cfg.FallbackSeed
		if raw, err = c.generate(ctx, prompt); err != nil {
			return State{}, fmt.Errorf("generate from fallback seed: %w", err)
		}
	}

	delta := c.postProcess(raw, prompt)
	if delta == "" {
		slog.Warn("empty delta after cleanup, regenerating from seed")
		raw, err = c.generate(ctx, c.cfg.FallbackSeed)
		if err != nil {
			return State{}, fmt.Errorf("regenerate after empty delta: %w", err)
		}
		// Terminal fallback: whatever this yields is accepted.
		delta = c.postProcess(raw, c.cfg.FallbackSeed)
	}

	if tokens := c.queue.DrainAll(); len(tokens) > 0 {
		delta = c.spliceTokens(delta, tokens)
	}

	published := c.store.Publish(snapshot.Text+" "+delta, delta)

	if c.snapshots != nil {
		if err := c.snapshots.Save(published); err != nil {
			slog.Warn("river snapshot save failed", "error", err)
		}
	}
	if c.onPublish != nil {
		c.onPublish(published)
	}
	return published, nil
}

func (c *Cycle) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := c.cfg.Sampling
	params.MaxTokens = llm.Int(c.cfg.MaxNewTokens)
	return c.client.Generate(ctx, prompt, params)
}

// contextWindow returns the trailing window of river text with the
// contribution markers stripped so prior markup cannot leak into the
// prompt.
func (c *Cycle) contextWindow(text string) string {
	runes := []rune(text)
	if len(runes) > c.cfg.ContextWindow {
		runes = runes[len(runes)-c.cfg.ContextWindow:]
	}
	return StripMarkers(string(runes))
}

// postProcess turns raw model output into a publishable delta: the echoed
// prompt prefix is dropped, everything outside the printable story
// alphabet is removed, marker echoes are stripped, and the result is
// capped at the delta limit. Returns "" when nothing usable remains.
func (c *Cycle) postProcess(raw, prompt string) string {
	if prompt != "" && strings.HasPrefix(raw, prompt) {
		raw = raw[len(prompt):]
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if !unicode.IsPrint(r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" .,!?-", r) {
			b.WriteRune(r)
		}
	}

	delta := StripMarkers(strings.TrimSpace(b.String()))
	if runes := []rune(delta); len(runes) > c.cfg.DeltaLimit {
		delta = string(runes[:c.cfg.DeltaLimit])
	}
	return strings.TrimSpace(delta)
}

// spliceTokens weaves drained contributions into the delta at random word
// slots. Slots are chosen without replacement and visited left to right,
// pairing with tokens in drain order; if tokens outnumber words the
// extras follow the last word so no contribution is ever dropped.
func (c *Cycle) spliceTokens(delta string, tokens []string) string {
	words := strings.Fields(delta)

	m := len(tokens)
	if m > len(words) {
		m = len(words)
	}
	var positions []int
	if m > 0 {
		positions = c.perm(len(words))[:m]
		sort.Ints(positions)
	}

	merged := make([]string, 0, len(words)+len(tokens))
	next := 0
	for i, word := range words {
		if next < m && positions[next] == i {
			merged = append(merged, tokens[next])
			next++
		}
		merged = append(merged, word)
	}
	merged = append(merged, tokens[m:]...)
	return strings.Join(merged, " ")
}
