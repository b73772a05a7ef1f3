// Package llm abstracts the text-generation backends that advance the
// river. The generation cycle only depends on the Client interface; the
// concrete backends (Ollama, OpenAI-compatible, scripted) are selected
// from configuration at startup.
package llm

import (
	"context"
	"fmt"
)

// GenerationParams carries the sampling configuration for a single
// generation call. Nil fields leave the backend's defaults in place.
type GenerationParams struct {
	Temperature   *float32 `json:"temperature"`
	TopK          *int     `json:"top_k"`
	TopP          *float32 `json:"top_p"`
	RepeatPenalty *float32 `json:"repeat_penalty"`
	MaxTokens     *int     `json:"max_tokens"`
	Stop          []string `json:"stop"`
}

// Client is the standard interface for any generation backend.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Settings selects and configures a backend.
type Settings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// New builds a Client for the configured provider.
func New(cfg Settings) (Client, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaClient(cfg.BaseURL, cfg.Model)
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "scripted":
		return NewScriptedClient(nil), nil
	default:
		return nil, fmt.Errorf("llm provider %q not supported", cfg.Provider)
	}
}

// Float32 returns a pointer to v, for populating GenerationParams.
func Float32(v float32) *float32 { return &v }

// Int returns a pointer to v, for populating GenerationParams.
func Int(v int) *int { return &v }
