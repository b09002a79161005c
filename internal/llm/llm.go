package llm

import (
	"context"
	"fmt"
	"strings"

	"research-assistant/internal/config"
)

// Message is a single role-tagged turn sent to a completion provider.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// CompletionOptions carries optional generation parameters.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	// JSONOutput asks the provider to constrain the response to a JSON
	// object, on backends that support it. No backend guarantees valid
	// JSON, so callers still have to handle parse failures.
	JSONOutput bool
}

// Provider produces completions for a list of role-tagged messages.
// Implementations exist per backend and are selected once at startup
// via NewProvider.
type Provider interface {
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
	Model() string
}

// NewProvider returns the completion provider matching the configured
// model name. Use NewSecondaryProvider for cheap classification work.
func NewProvider(cfg *config.Config) (Provider, error) {
	return providerForModel(cfg, cfg.PrimaryModel)
}

// NewSecondaryProvider returns a provider backed by the secondary model,
// used for lightweight classification tasks.
func NewSecondaryProvider(cfg *config.Config) (Provider, error) {
	return providerForModel(cfg, cfg.SecondaryModel)
}

func providerForModel(cfg *config.Config, model string) (Provider, error) {
	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "gpt"):
		return NewOpenAIProvider(cfg, model), nil
	case strings.HasPrefix(lower, "claude"):
		return NewAnthropicProvider(cfg, model), nil
	case strings.HasPrefix(lower, "gemini"):
		return NewGeminiProvider(cfg, model), nil
	default:
		return nil, fmt.Errorf("unsupported model: %s", model)
	}
}

// SystemMessage is a convenience constructor.
func SystemMessage(content string) Message { return Message{Role: "system", Content: content} }

// UserMessage is a convenience constructor.
func UserMessage(content string) Message { return Message{Role: "user", Content: content} }
