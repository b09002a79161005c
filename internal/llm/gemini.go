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

// GeminiProvider handles communication with the Gemini generateContent API.
type GeminiProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGeminiProvider creates a provider for the Gemini API
func NewGeminiProvider(cfg *config.Config, model string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  cfg.GoogleAPIKey,
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com/v1beta/models",
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // 2 minute timeout for AI calls
		},
		logger: logger.Log,
	}
}

// Model returns the configured model name
func (p *GeminiProvider) Model() string { return p.model }

// Complete makes a request to the Gemini generateContent endpoint.
// Assistant turns map to the "model" role; system messages become the
// systemInstruction field.
func (p *GeminiProvider) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	start := time.Now()

	system, rest := splitSystem(messages)

	request := geminiRequest{
		GenerationConfig: &geminiGenConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}
	if opts.JSONOutput {
		request.GenerationConfig.ResponseMimeType = "application/json"
	}
	if system != "" {
		request.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	for _, m := range rest {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		request.Contents = append(request.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	response, err := doWithRetry(p.httpClient, httpReq, p.logger, "gemini", 3)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		var apiErr geminiError
		if json.Unmarshal(responseBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("gemini %s: %s", categorizeStatus(response.StatusCode), apiErr.Error.Message)
		}
		return "", fmt.Errorf("gemini %s (status %d)", categorizeStatus(response.StatusCode), response.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response content")
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	p.logger.WithFields(map[string]interface{}{
		"backend":         "gemini",
		"model":           p.model,
		"duration_ms":     time.Since(start).Milliseconds(),
		"response_length": len(text),
		"input_tokens":    parsed.UsageMetadata.PromptTokenCount,
		"output_tokens":   parsed.UsageMetadata.CandidatesTokenCount,
	}).Debug("Completion response received")

	return text, nil
}
