package llm

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// doWithRetry makes an HTTP request with retry logic for retryable errors.
// Server errors and rate limits back off exponentially, honoring a
// Retry-After header when present.
func doWithRetry(client *http.Client, req *http.Request, log *logrus.Logger, backend string, maxRetries int) (*http.Response, error) {
	var lastErr error

	var requestBody []byte
	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body for retry: %w", err)
		}
		requestBody = bodyBytes
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if requestBody != nil {
			req.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		response, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)

			// Don't retry on context cancellation or timeout
			if req.Context().Err() != nil {
				return nil, lastErr
			}

			if attempt < maxRetries {
				waitTime := time.Duration(1<<uint(attempt)) * time.Second // Exponential backoff
				log.WithFields(map[string]interface{}{
					"backend":      backend,
					"attempt":      attempt + 1,
					"max_attempts": maxRetries + 1,
					"wait_seconds": waitTime.Seconds(),
				}).Warn("Request failed, retrying")

				select {
				case <-time.After(waitTime):
					continue
				case <-req.Context().Done():
					return nil, req.Context().Err()
				}
			}
			continue
		}

		// Check for retryable HTTP status codes
		if response.StatusCode >= 500 || response.StatusCode == http.StatusTooManyRequests {
			if attempt < maxRetries {
				waitTime := time.Duration(1<<uint(attempt)) * time.Second
				if response.StatusCode == http.StatusTooManyRequests {
					// Use Retry-After header if available
					if retryHeader := response.Header.Get("Retry-After"); retryHeader != "" {
						if seconds, parseErr := strconv.Atoi(retryHeader); parseErr == nil {
							waitTime = time.Duration(seconds) * time.Second
						}
					}
				}
				response.Body.Close()

				log.WithFields(map[string]interface{}{
					"backend":      backend,
					"status_code":  response.StatusCode,
					"attempt":      attempt + 1,
					"max_attempts": maxRetries + 1,
					"wait_seconds": waitTime.Seconds(),
				}).Warn("Received retryable status code, retrying")

				select {
				case <-time.After(waitTime):
					continue
				case <-req.Context().Done():
					return nil, req.Context().Err()
				}
			}

			lastErr = fmt.Errorf("server error after retries (status %d)", response.StatusCode)
			response.Body.Close()
			continue
		}

		// Success or non-retryable error
		return response, nil
	}

	return nil, lastErr
}

// categorizeStatus maps an HTTP status code to the provider failure
// category surfaced in error strings, so upstream fallback logic treats
// every backend uniformly.
func categorizeStatus(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "authentication_error"
	case http.StatusTooManyRequests:
		return "rate_limit_error"
	case http.StatusNotFound:
		return "not_found_error"
	case http.StatusRequestEntityTooLarge:
		return "context_length_error"
	default:
		if status >= 500 {
			return "server_error"
		}
		return "invalid_request_error"
	}
}
