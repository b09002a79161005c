package agents

import (
	"context"
	"strings"
	"time"
)

// IdentityAgent answers questions about who the assistant is and what
// it can do. Responses are canned so identity never depends on a
// provider call.
type IdentityAgent struct {
	*BaseAgent
	assistantName string
}

// NewIdentityAgent creates an identity question handler
func NewIdentityAgent(assistantName string) *IdentityAgent {
	return &IdentityAgent{
		BaseAgent:     NewBaseAgent("identity_agent"),
		assistantName: assistantName,
	}
}

// Handle answers an identity question directly.
func (i *IdentityAgent) Handle(ctx context.Context, message string, intent IntentRecord) HandlerResponse {
	start := time.Now()
	i.LogStart(ctx, len(message))

	questionType := intent.QuestionType
	if questionType == "" {
		questionType = classifyIdentityQuestion(message)
	}

	var response string
	switch questionType {
	case "name":
		response = "I'm " + i.assistantName + ", your research assistant."
	case "nature":
		response = "I'm an AI research assistant. I can search academic papers on arXiv, " +
			"look things up on the web, compare research methods, and explain concepts in plain terms."
	default:
		response = "I'm " + i.assistantName + ", an AI assistant built for research. " +
			"Ask me to find papers, compare methods, or explain a concept and I'll dig in."
	}

	i.LogSuccess(ctx, map[string]interface{}{"question_type": questionType}, time.Since(start))
	return HandlerResponse{
		Response: response,
		Metadata: map[string]interface{}{
			"handler":       HandlerIdentity,
			"question_type": questionType,
		},
	}
}

func classifyIdentityQuestion(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "name"):
		return "name"
	case strings.Contains(lower, "what are you") || strings.Contains(lower, "who are you") ||
		strings.Contains(lower, "are you a") || strings.Contains(lower, "are you an"):
		return "nature"
	default:
		return "general"
	}
}
