package agents

import (
	"context"
	"strings"
	"time"

	"research-assistant/internal/llm"
	"research-assistant/internal/logger"

	"github.com/sirupsen/logrus"
)

// BaseAgent provides common functionality for all AI agents
type BaseAgent struct {
	name   string
	logger *logrus.Logger
}

// NewBaseAgent creates a new base agent
func NewBaseAgent(name string) *BaseAgent {
	return &BaseAgent{
		name:   name,
		logger: logger.Log,
	}
}

// Name returns the agent's name
func (b *BaseAgent) Name() string {
	return b.name
}

// LogStart logs the beginning of agent processing
func (b *BaseAgent) LogStart(ctx context.Context, inputLength int) {
	b.logger.WithFields(map[string]interface{}{
		"agent":          b.name,
		"correlation_id": getCorrelationID(ctx),
		"input_length":   inputLength,
	}).Info("Agent processing started")
}

// LogSuccess logs successful completion of agent processing
func (b *BaseAgent) LogSuccess(ctx context.Context, fields map[string]interface{}, duration time.Duration) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["agent"] = b.name
	fields["correlation_id"] = getCorrelationID(ctx)
	fields["duration_ms"] = duration.Milliseconds()
	b.logger.WithFields(fields).Info("Agent processing completed successfully")
}

// LogError logs agent processing errors
func (b *BaseAgent) LogError(ctx context.Context, err error, operation string) {
	logger.LogErrorWithStackAndCorrelation(err, getCorrelationID(ctx), map[string]interface{}{
		"agent":     b.name,
		"operation": operation,
	})
}

// Complete requests a completion and translates provider failures into
// a descriptive error string returned as the completion text. Every
// caller parses the text as JSON with a structural fallback, so a
// provider failure and malformed model output take the same local
// recovery path instead of raising.
func (b *BaseAgent) Complete(ctx context.Context, provider llm.Provider, messages []llm.Message, opts llm.CompletionOptions) string {
	text, err := provider.Complete(ctx, messages, opts)
	if err != nil {
		b.logger.WithFields(map[string]interface{}{
			"agent":          b.name,
			"correlation_id": getCorrelationID(ctx),
			"model":          provider.Model(),
			"error":          err.Error(),
		}).Error("Completion provider call failed")
		return "provider error: " + err.Error()
	}
	return text
}

// TruncateContent truncates content to a maximum length for API calls
func (b *BaseAgent) TruncateContent(content string, maxLength int) string {
	if len(content) <= maxLength {
		return content
	}

	truncated := content[:maxLength]

	// Try to end at a word boundary
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > maxLength-100 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "\n[...content truncated...]"
}

// TruncateForLog truncates text for logging to avoid overly long log messages
func (b *BaseAgent) TruncateForLog(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	return text[:maxLength] + "..."
}

// getCorrelationID extracts correlation ID from context
func getCorrelationID(ctx context.Context) string {
	if id := ctx.Value(correlationIDKey); id != nil {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	return ""
}

type contextKey string

// correlationIDKey is the context key carrying the per-request
// correlation ID through the agent pipeline.
const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID returns a context carrying the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}
