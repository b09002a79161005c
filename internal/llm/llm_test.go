package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-assistant/internal/config"
)

func TestNewProvider_ModelPrefixRouting(t *testing.T) {
	cfg := &config.Config{
		PrimaryModel:    "gpt-4o",
		SecondaryModel:  "claude-3-5-haiku-latest",
		OpenAIAPIKey:    "k",
		OpenAIBaseURL:   "https://api.openai.com/v1",
		AnthropicAPIKey: "k",
	}

	primary, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIProvider{}, primary)
	assert.Equal(t, "gpt-4o", primary.Model())

	secondary, err := NewSecondaryProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicProvider{}, secondary)
}

func TestNewProvider_Gemini(t *testing.T) {
	cfg := &config.Config{PrimaryModel: "gemini-2.0-flash", GoogleAPIKey: "k"}

	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &GeminiProvider{}, provider)
}

func TestNewProvider_UnsupportedModel(t *testing.T) {
	_, err := NewProvider(&config.Config{PrimaryModel: "llama-70b"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model")
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var gotRequest openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "resp-1",
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "hello back"}},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5},
		})
	}))
	defer server.Close()

	provider := NewOpenAIProvider(&config.Config{OpenAIAPIKey: "test-key", OpenAIBaseURL: server.URL}, "gpt-4o")

	text, err := provider.Complete(context.Background(), []Message{UserMessage("hello")}, CompletionOptions{JSONOutput: true})

	require.NoError(t, err)
	assert.Equal(t, "hello back", text)
	require.NotNil(t, gotRequest.ResponseFormat)
	assert.Equal(t, "json_object", gotRequest.ResponseFormat.Type)
}

func TestOpenAIProvider_ErrorCategorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "bad key", "type": "invalid_request_error"},
		})
	}))
	defer server.Close()

	provider := NewOpenAIProvider(&config.Config{OpenAIAPIKey: "bad", OpenAIBaseURL: server.URL}, "gpt-4o")

	_, err := provider.Complete(context.Background(), []Message{UserMessage("hello")}, CompletionOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication_error")
}

func TestAnthropicProvider_SystemLifted(t *testing.T) {
	var gotRequest anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "msg-1",
			"content": []map[string]string{{"type": "text", "text": "{\"ok\": true}"}},
			"usage":   map[string]int{"input_tokens": 5, "output_tokens": 3},
		})
	}))
	defer server.Close()

	provider := NewAnthropicProvider(&config.Config{AnthropicAPIKey: "test-key"}, "claude-3-5-haiku-latest")
	provider.baseURL = server.URL

	text, err := provider.Complete(context.Background(), []Message{
		SystemMessage("You are terse."),
		UserMessage("hello"),
	}, CompletionOptions{JSONOutput: true})

	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, text)
	assert.Contains(t, gotRequest.System, "You are terse.")
	assert.Contains(t, gotRequest.System, "valid JSON object")
	require.Len(t, gotRequest.Messages, 1)
	assert.Equal(t, "user", gotRequest.Messages[0].Role)
	assert.Equal(t, 4000, gotRequest.MaxTokens)
}

func TestCategorizeStatus(t *testing.T) {
	assert.Equal(t, "authentication_error", categorizeStatus(401))
	assert.Equal(t, "rate_limit_error", categorizeStatus(429))
	assert.Equal(t, "server_error", categorizeStatus(503))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripCodeFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFences(`{"a": 1}`))
}

func TestDecodeJSONObject(t *testing.T) {
	var out struct {
		A int `json:"a"`
	}
	require.NoError(t, DecodeJSONObject("```json\n{\"a\": 2}\n```", &out))
	assert.Equal(t, 2, out.A)
}
