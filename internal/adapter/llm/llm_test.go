package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestRenderPrompt(t *testing.T) {
	prompt, err := RenderPrompt("A cat sat.\n\nA dog ran.", "Which animal sat?")
	require.NoError(t, err)

	assert.Contains(t, prompt, "answers based only on the provided context")
	assert.Contains(t, prompt, "Context:\nA cat sat.\n\nA dog ran.\n")
	assert.Contains(t, prompt, "Question: Which animal sat?")
	assert.Contains(t, prompt, "say you cannot find it")
}

func TestEchoGenerator(t *testing.T) {
	g := NewEchoGenerator()
	ctx := context.Background()

	answer, err := g.Generate(ctx, "first passage\n\nsecond passage", "q?")
	require.NoError(t, err)
	assert.Equal(t, "first passage", answer)

	answer, err = g.Generate(ctx, "", "q?")
	require.NoError(t, err)
	assert.Contains(t, answer, "cannot find")
	assert.Equal(t, "echo", g.ModelName())
}

func TestEchoGeneratorErrors(t *testing.T) {
	g := NewEchoGenerator()

	_, err := g.Generate(context.Background(), "passage", " ")
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorIs(t, err, domain.ErrMissingField)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, "passage", "q?")
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.KindCollaborator, domain.Classify(err))
}

func chatServer(t *testing.T, delay time.Duration, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Messages) > 0 {
			assert.Contains(t, req.Messages[0].Content, "Question: ")
		}

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIGenerator(t *testing.T) {
	srv := chatServer(t, 0, "  The cat sat.  ")
	defer srv.Close()

	t.Setenv("DOCQA_TEST_KEY", "test-key")
	g, err := NewOpenAIGenerator(GeneratorOptions{
		APIKeyEnv: "DOCQA_TEST_KEY",
		Model:     "gpt-4o-mini",
		BaseURL:   srv.URL + "/v1",
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)

	answer, err := g.Generate(context.Background(), "A cat sat.", "Which animal sat?")
	require.NoError(t, err)
	assert.Equal(t, "The cat sat.", answer)
	assert.Equal(t, "gpt-4o-mini", g.ModelName())
}

func TestOpenAIGeneratorTimeout(t *testing.T) {
	srv := chatServer(t, 2*time.Second, "late")
	defer srv.Close()

	t.Setenv("DOCQA_TEST_KEY", "test-key")
	g, err := NewOpenAIGenerator(GeneratorOptions{
		APIKeyEnv: "DOCQA_TEST_KEY",
		Model:     "gpt-4o-mini",
		BaseURL:   srv.URL + "/v1",
		Timeout:   50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "ctx", "q")
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestOpenAIGeneratorEmptyAnswer(t *testing.T) {
	srv := chatServer(t, 0, "   ")
	defer srv.Close()

	t.Setenv("DOCQA_TEST_KEY", "test-key")
	g, err := NewOpenAIGenerator(GeneratorOptions{APIKeyEnv: "DOCQA_TEST_KEY", Model: "m", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "ctx", "q")
	assert.ErrorIs(t, err, domain.ErrGeneration)
}
