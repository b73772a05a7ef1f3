package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClientGenerate(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Model:    got.Model,
			Response: "the river widened",
			Done:     true,
		}))
	}))
	defer srv.Close()

	client, err := NewOllamaClient(srv.URL, "test-model")
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "Once upon a time...", GenerationParams{
		Temperature:   Float32(0.7),
		TopP:          Float32(0.9),
		TopK:          Int(40),
		RepeatPenalty: Float32(1.3),
		MaxTokens:     Int(30),
	})
	require.NoError(t, err)
	assert.Equal(t, "the river widened", out)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "Once upon a time...", got.Prompt)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.7, got.Options["temperature"], 0.001)
	assert.InDelta(t, 0.9, got.Options["top_p"], 0.001)
	assert.InDelta(t, 40, got.Options["top_k"], 0.001)
	assert.InDelta(t, 1.3, got.Options["repeat_penalty"], 0.001)
	assert.InDelta(t, 30, got.Options["num_predict"], 0.001)
}

func TestOllamaClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewOllamaClient(srv.URL, "missing-model")
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "prompt", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaClientRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client, err := NewOllamaClient(srv.URL, "slow-model")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Generate(ctx, "prompt", GenerationParams{})
	require.Error(t, err)
}

func TestNewOllamaClientValidation(t *testing.T) {
	_, err := NewOllamaClient("", "model")
	assert.Error(t, err)

	_, err = NewOllamaClient("http://localhost:11434", "")
	assert.Error(t, err)
}
