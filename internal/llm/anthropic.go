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

// AnthropicProvider handles communication with the Anthropic messages API.
type AnthropicProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicProvider creates a provider for the Anthropic API
func NewAnthropicProvider(cfg *config.Config, model string) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:  cfg.AnthropicAPIKey,
		model:   model,
		baseURL: "https://api.anthropic.com/v1/messages",
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // 2 minute timeout for AI calls
		},
		logger: logger.Log,
	}
}

// Model returns the configured model name
func (p *AnthropicProvider) Model() string { return p.model }

// Complete makes a request to the Anthropic messages API. System
// messages are lifted into the request's system field; JSON output is
// requested through an instruction since the API has no response_format.
func (p *AnthropicProvider) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	start := time.Now()

	system, rest := splitSystem(messages)
	if opts.JSONOutput {
		if system != "" {
			system += "\n\n"
		}
		system += "Respond with a single valid JSON object and nothing else."
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}

	request := anthropicRequest{
		Model:       p.model,
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
		Messages:    rest,
		System:      system,
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
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	response, err := doWithRetry(p.httpClient, httpReq, p.logger, "anthropic", 3)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		var apiErr anthropicError
		if json.Unmarshal(responseBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("anthropic %s: %s", categorizeStatus(response.StatusCode), apiErr.Error.Message)
		}
		return "", fmt.Errorf("anthropic %s (status %d)", categorizeStatus(response.StatusCode), response.StatusCode)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return "", fmt.Errorf("empty response content")
	}

	text := parsed.Content[0].Text
	p.logger.WithFields(map[string]interface{}{
		"backend":         "anthropic",
		"model":           p.model,
		"duration_ms":     time.Since(start).Milliseconds(),
		"response_length": len(text),
		"input_tokens":    parsed.Usage.InputTokens,
		"output_tokens":   parsed.Usage.OutputTokens,
	}).Debug("Completion response received")

	return text, nil
}

// splitSystem separates system messages from the conversational turns.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
