package agents

import (
	"context"
	"time"

	"research-assistant/internal/llm"
)

// ConversationAgent answers greetings, small talk, and light questions
// that need no retrieval.
type ConversationAgent struct {
	*BaseAgent
	provider      llm.Provider
	recommender   *Recommender
	assistantName string
}

// NewConversationAgent creates a conversational handler
func NewConversationAgent(provider llm.Provider, recommender *Recommender, assistantName string) *ConversationAgent {
	return &ConversationAgent{
		BaseAgent:     NewBaseAgent("conversation_agent"),
		provider:      provider,
		recommender:   recommender,
		assistantName: assistantName,
	}
}

// Handle produces a conversational reply framed by the detected
// conversation type.
func (c *ConversationAgent) Handle(ctx context.Context, message string, intent IntentRecord, history []llm.Message) HandlerResponse {
	start := time.Now()
	c.LogStart(ctx, len(message))

	system := c.systemFraming(intent.ConversationType)
	messages := []llm.Message{llm.SystemMessage(system)}
	messages = append(messages, lastTurns(history, 5)...)
	messages = append(messages, llm.UserMessage(message))

	text := c.Complete(ctx, c.provider, messages, llm.CompletionOptions{Temperature: 0.7, MaxTokens: 500})

	recs := c.recommender.Generate(ctx, message, text)

	c.LogSuccess(ctx, map[string]interface{}{"response_length": len(text)}, time.Since(start))
	return HandlerResponse{
		Response:        text,
		Recommendations: recs,
		Metadata: map[string]interface{}{
			"handler":           HandlerConversation,
			"conversation_type": intent.ConversationType,
		},
	}
}

func (c *ConversationAgent) systemFraming(conversationType string) string {
	base := "You are " + c.assistantName + ", a friendly research assistant. "
	switch conversationType {
	case "greeting":
		return base + "Greet the user warmly in one or two sentences and invite them to ask a research question."
	case "capabilities":
		return base + "Describe what you can help with: finding papers, comparing methods, explaining concepts, and suggesting research directions."
	case "clarification":
		return base + "Ask one focused question that would let you answer their research need precisely."
	case "follow_up":
		return base + "Continue the prior thread, building on what was already discussed."
	default:
		return base + "Reply conversationally and, where natural, steer toward how you can help with research."
	}
}
