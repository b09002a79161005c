package agents

import (
	"context"
	"regexp"
	"strings"
	"time"

	"research-assistant/internal/llm"
)

// IntentClassifier maps a user message plus recent history to an
// IntentRecord. Classification is total: every failure path degrades to
// a heuristic result and no error is ever returned.
type IntentClassifier struct {
	*BaseAgent
	provider llm.Provider
}

// NewIntentClassifier creates an intent classifier backed by the given
// provider. The secondary model is the intended backend since this is a
// cheap classification task.
func NewIntentClassifier(provider llm.Provider) *IntentClassifier {
	return &IntentClassifier{
		BaseAgent: NewBaseAgent("intent_classifier"),
		provider:  provider,
	}
}

// basicGreetings are phrases that are definitely conversational. The
// quick check is a safety net that works without the provider.
var basicGreetings = []string{
	"hi", "hello", "hey", "greetings", "howdy", "hiya", "whats up", "what's up",
}

// explanationPatterns detect educational queries that must always route
// to research, regardless of what the classifier model says.
var explanationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^explain\s+(?:to me\s+)?(?:the concept of\s+)?([a-zA-Z0-9\s\-]+?)(?:\s+in simple terms)?\s*\??$`),
	regexp.MustCompile(`(?i)^explain\s+(?:this|the)\s+concept(?:\s+in simple terms)?:\s*([a-zA-Z0-9\s\-]+?)\s*$`),
	regexp.MustCompile(`(?i)^what\s+is\s+([a-zA-Z0-9\s\-]+?)(?:\s+in simple terms)?\s*\??$`),
	regexp.MustCompile(`(?i)^how\s+does\s+([a-zA-Z0-9\s\-]+?)(?:\s+work)?\s*\??$`),
}

var questionWords = []string{"what", "when", "where", "which", "who", "why", "how"}

// Classify analyzes the user's intent. Only the last 5 history turns
// are used for context.
func (c *IntentClassifier) Classify(ctx context.Context, message string, history []llm.Message) IntentRecord {
	start := time.Now()
	c.LogStart(ctx, len(message))

	// 1. Deterministic quick check, independent of the provider.
	if intent, ok := c.quickConversationalCheck(message); ok {
		c.logger.WithFields(map[string]interface{}{
			"agent":          c.Name(),
			"correlation_id": getCorrelationID(ctx),
			"message":        c.TruncateForLog(message, 80),
		}).Info("Quick check detected conversational message")
		return intent
	}

	// 2. Explanation intents must never be routed conversationally.
	if concept, ok := extractConcept(message); ok {
		c.logger.WithFields(map[string]interface{}{
			"agent":          c.Name(),
			"correlation_id": getCorrelationID(ctx),
			"concept":        concept,
		}).Info("Detected educational explanation query")
		return IntentRecord{
			PrimaryIntent:    "explanation",
			Entities:         []string{concept},
			InfoType:         "educational",
			RequiresSearch:   true,
			RequiresPlanning: true,
			Handler:          HandlerResearch,
			ConceptToExplain: concept,
		}
	}

	// 3. LLM classification with structured output.
	intent := c.classifyWithProvider(ctx, message, history)

	c.LogSuccess(ctx, map[string]interface{}{
		"primary_intent": intent.PrimaryIntent,
		"handler":        string(intent.Handler),
	}, time.Since(start))
	return intent
}

// quickConversationalCheck matches unambiguous greetings and short
// phrases, excluding anything starting with "explain".
func (c *IntentClassifier) quickConversationalCheck(message string) (IntentRecord, bool) {
	normalized := strings.TrimSpace(strings.ToLower(message))
	normalized = strings.TrimSpace(strings.TrimRight(normalized, "?"))

	if strings.HasPrefix(normalized, "explain") || strings.Contains(normalized, "explain this concept") {
		return IntentRecord{}, false
	}

	matched := false
	for _, greeting := range basicGreetings {
		if normalized == greeting || strings.HasPrefix(normalized, greeting+" ") {
			matched = true
			break
		}
	}
	if !matched && len(strings.Fields(normalized)) <= 4 {
		for _, phrase := range []string{"how are you", "whats up", "what's up"} {
			if strings.Contains(normalized, phrase) {
				matched = true
				break
			}
		}
	}
	if !matched {
		return IntentRecord{}, false
	}

	return IntentRecord{
		PrimaryIntent:    "greeting",
		Entities:         []string{},
		InfoType:         "conversation",
		IsConversational: true,
		ConversationType: "greeting",
		RequiresSearch:   false,
		RequiresPlanning: false,
		Handler:          HandlerConversation,
	}, true
}

// extractConcept returns the concept of an explanation-style query.
func extractConcept(message string) (string, bool) {
	for _, pattern := range explanationPatterns {
		if m := pattern.FindStringSubmatch(strings.TrimSpace(message)); len(m) > 1 {
			concept := strings.TrimSpace(m[1])
			if len(concept) > 1 {
				return concept, true
			}
		}
	}
	return "", false
}

const intentSystemPrompt = `You are an intent analysis agent for a research assistant. Classify the user's message.

Possible intents: greeting, chitchat, identity, capabilities, clarification, follow_up, research, factual, explanation.

Simple greetings, casual questions, and phrases like "how are you" are conversational. Questions about the assistant itself are identity questions. Requests to explain a concept or find scholarly information require research.

Return a JSON object with these fields:
- primary_intent: the main intent category
- entities: list of key entities or topics mentioned
- info_type: the kind of information needed
- time_frame: one of "any", "past_week", "past_month", "past_year"
- research_areas: list of research areas involved
- is_conversational: true/false
- conversation_type: for conversational messages, one of "greeting", "capabilities", "clarification", "follow_up"
- question_type: for identity questions, one of "name", "nature", "general"
- requires_search: true/false
- requires_planning: true/false
- handler: one of "conversation", "identity", "research"

Respond with valid JSON only.`

// classifyWithProvider runs the model classification and normalizes the
// result, falling back to heuristics on any parse failure.
func (c *IntentClassifier) classifyWithProvider(ctx context.Context, message string, history []llm.Message) IntentRecord {
	messages := []llm.Message{llm.SystemMessage(intentSystemPrompt)}
	messages = append(messages, lastTurns(history, 5)...)
	messages = append(messages, llm.UserMessage(message))

	raw := c.Complete(ctx, c.provider, messages, llm.CompletionOptions{
		Temperature: 0.1,
		JSONOutput:  true,
	})

	var intent IntentRecord
	if err := decodeJSON(raw, &intent); err != nil {
		c.logger.WithFields(map[string]interface{}{
			"agent":          c.Name(),
			"correlation_id": getCorrelationID(ctx),
			"raw":            c.TruncateForLog(raw, 200),
			"error":          err.Error(),
		}).Warn("Failed to parse intent JSON, using heuristic fallback")
		return heuristicIntent(message)
	}

	normalizeIntent(&intent)
	return intent
}

// normalizeIntent fills in defaults for fields the model omitted, so
// the handler is always one of the three known values.
func normalizeIntent(intent *IntentRecord) {
	if intent.PrimaryIntent == "" {
		intent.PrimaryIntent = "unknown"
	}
	if intent.Entities == nil {
		intent.Entities = []string{}
	}

	switch intent.Handler {
	case HandlerConversation, HandlerIdentity, HandlerResearch:
		// known value, keep it
	default:
		primary := strings.ToLower(intent.PrimaryIntent)
		switch {
		case intent.IsConversational,
			primary == "greeting", primary == "chitchat", primary == "conversational":
			intent.Handler = HandlerConversation
			intent.IsConversational = true
		case primary == "identity", primary == "capabilities":
			intent.Handler = HandlerIdentity
		default:
			intent.Handler = HandlerResearch
			if !intent.RequiresSearch {
				intent.RequiresSearch = !intent.IsConversational
			}
		}
	}

	if intent.Handler == HandlerResearch && !intent.RequiresPlanning {
		intent.RequiresPlanning = intent.RequiresSearch
	}
}

// heuristicIntent is the local fallback for unparsable classifier
// output. Never propagated as an error.
func heuristicIntent(message string) IntentRecord {
	normalized := strings.ToLower(strings.TrimSpace(message))
	words := strings.Fields(normalized)

	hasQuestionWord := false
	for _, w := range words {
		for _, q := range questionWords {
			if strings.TrimRight(w, "?") == q {
				hasQuestionWord = true
				break
			}
		}
	}

	if len(words) <= 4 && !hasQuestionWord {
		return IntentRecord{
			PrimaryIntent:    "greeting",
			Entities:         []string{},
			IsConversational: true,
			ConversationType: "greeting",
			Handler:          HandlerConversation,
		}
	}

	if len(words) <= 8 && strings.Contains(normalized, "you") {
		return IntentRecord{
			PrimaryIntent: "identity",
			Entities:      []string{},
			QuestionType:  "general",
			Handler:       HandlerIdentity,
		}
	}

	return IntentRecord{
		PrimaryIntent:    "research",
		Entities:         []string{},
		RequiresSearch:   true,
		RequiresPlanning: true,
		Handler:          HandlerResearch,
	}
}

// lastTurns returns at most n trailing messages from the history.
func lastTurns(history []llm.Message, n int) []llm.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
