package clients

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

// TavilyClientInterface defines the interface for the Tavily search client
type TavilyClientInterface interface {
	Search(ctx context.Context, agentName, query string, maxResults int) (*TavilyResponse, error)
	Configured() bool
}

// TavilyClient handles communication with the Tavily API for web search
type TavilyClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// TavilyRequest represents a request to the Tavily API
type TavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

// TavilyResponse represents a response from the Tavily API
type TavilyResponse struct {
	Query   string         `json:"query"`
	Results []TavilyResult `json:"results"`
}

// TavilyResult represents a single search result
type TavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// TavilyError represents an error response from the Tavily API
type TavilyError struct {
	Detail string `json:"detail"`
}

func (e *TavilyError) Error() string {
	return fmt.Sprintf("tavily API error: %s", e.Detail)
}

// NewTavilyClient creates a new Tavily API client
func NewTavilyClient(cfg *config.Config) *TavilyClient {
	return &TavilyClient{
		apiKey:  cfg.TavilyAPIKey,
		baseURL: "https://api.tavily.com/search",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.Log,
	}
}

// Configured reports whether an API key is available. Callers fall back
// to simulated results when it is not.
func (c *TavilyClient) Configured() bool {
	return c.apiKey != ""
}

// Search performs a web search using the Tavily API
func (c *TavilyClient) Search(ctx context.Context, agentName, query string, maxResults int) (*TavilyResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("Tavily API key not configured")
	}

	start := time.Now()

	if maxResults <= 0 {
		maxResults = 5
	}

	c.logger.WithFields(map[string]interface{}{
		"agent":       agentName,
		"query":       query,
		"max_results": maxResults,
	}).Info("Performing Tavily web search")

	request := TavilyRequest{
		APIKey:      c.apiKey,
		Query:       query,
		SearchDepth: "advanced",
		MaxResults:  maxResults,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr TavilyError
		if json.Unmarshal(responseBody, &apiErr) == nil && apiErr.Detail != "" {
			return nil, fmt.Errorf("API error (status %d): %w", resp.StatusCode, &apiErr)
		}
		return nil, fmt.Errorf("unknown API error (status %d)", resp.StatusCode)
	}

	var tavilyResp TavilyResponse
	if err := json.Unmarshal(responseBody, &tavilyResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"agent":         agentName,
		"duration_ms":   time.Since(start).Milliseconds(),
		"results_count": len(tavilyResp.Results),
	}).Info("Tavily search completed")

	return &tavilyResp, nil
}
