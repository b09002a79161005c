package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"research-assistant/internal/config"
	"research-assistant/internal/logger"

	"github.com/sirupsen/logrus"
)

// OpenAIProvider handles communication with an OpenAI-compatible
// chat-completions endpoint.
type OpenAIProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []Message             `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible backend
func NewOpenAIProvider(cfg *config.Config, model string) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:  cfg.OpenAIAPIKey,
		model:   model,
		baseURL: cfg.OpenAIBaseURL + "/chat/completions",
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // 2 minute timeout for AI calls
		},
		logger: logger.Log,
	}
}

// Model returns the configured model name
func (p *OpenAIProvider) Model() string { return p.model }

// Complete makes a request to the chat-completions endpoint
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	start := time.Now()

	request := openAIRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSONOutput {
		request.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	p.logger.WithFields(map[string]interface{}{
		"backend":       "openai",
		"model":         p.model,
		"message_count": len(messages),
		"json_output":   opts.JSONOutput,
	}).Debug("Making completion call")

	response, err := doWithRetry(p.httpClient, httpReq, p.logger, "openai", 3)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		var apiErr openAIError
		if json.Unmarshal(responseBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("openai %s: %s", categorizeStatus(response.StatusCode), apiErr.Error.Message)
		}
		return "", fmt.Errorf("openai %s (status %d)", categorizeStatus(response.StatusCode), response.StatusCode)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty response content")
	}

	text := parsed.Choices[0].Message.Content
	p.logger.WithFields(map[string]interface{}{
		"backend":         "openai",
		"model":           p.model,
		"duration_ms":     time.Since(start).Milliseconds(),
		"response_length": len(text),
		"input_tokens":    parsed.Usage.PromptTokens,
		"output_tokens":   parsed.Usage.CompletionTokens,
	}).Debug("Completion response received")

	return text, nil
}
