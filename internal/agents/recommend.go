package agents

import (
	"context"
	"sort"
	"strings"
	"time"

	"research-assistant/internal/llm"
)

// Recommender proposes follow-up research directions from the current
// exchange. It always returns something: when the model output cannot
// be parsed it falls back to keyword-derived suggestions.
type Recommender struct {
	*BaseAgent
	provider llm.Provider
	limit    int
}

// NewRecommender creates a recommendation generator
func NewRecommender(provider llm.Provider, limit int) *Recommender {
	return &Recommender{
		BaseAgent: NewBaseAgent("recommender"),
		provider:  provider,
		limit:     limit,
	}
}

const recommendPrompt = `Suggest follow-up research directions based on the conversation.

Respond with a JSON array of objects:
[{"title": "...", "description": "...", "type": "paper|topic|question", "relevance_score": <0.0-1.0>}]`

// Generate produces ranked follow-up recommendations.
func (r *Recommender) Generate(ctx context.Context, query, response string) []Recommendation {
	start := time.Now()
	r.LogStart(ctx, len(query))

	raw := r.Complete(ctx, r.provider, []llm.Message{
		llm.SystemMessage(recommendPrompt),
		llm.UserMessage("Question: " + query + "\n\nAnswer: " + r.TruncateContent(response, 3000)),
	}, llm.CompletionOptions{Temperature: 0.5, JSONOutput: true})

	var recs []Recommendation
	if err := decodeJSONList(raw, "recommendations", &recs); err != nil || len(recs) == 0 {
		recs = keywordRecommendations(query)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].RelevanceScore > recs[j].RelevanceScore
	})
	if len(recs) > r.limit {
		recs = recs[:r.limit]
	}

	r.LogSuccess(ctx, map[string]interface{}{"recommendation_count": len(recs)}, time.Since(start))
	return recs
}

var recommendStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "about": true, "is": true, "are": true, "was": true,
	"what": true, "how": true, "why": true, "when": true, "where": true,
	"can": true, "you": true, "me": true, "my": true, "i": true, "do": true,
	"does": true, "explain": true, "tell": true, "please": true, "between": true,
	"compare": true, "difference": true, "this": true, "that": true,
}

// keywordRecommendations derives deterministic suggestions from the
// query's content words.
func keywordRecommendations(query string) []Recommendation {
	words := strings.Fields(strings.ToLower(query))
	var keywords []string
	seen := make(map[string]bool)
	for _, w := range words {
		w = strings.Trim(w, ".,!?:;\"'()")
		if len(w) < 3 || recommendStopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) == 3 {
			break
		}
	}
	if len(keywords) == 0 {
		return []Recommendation{{
			Title:          "Explore related research areas",
			Description:    "Ask about a specific topic to get targeted suggestions.",
			Type:           "topic",
			RelevanceScore: 0.3,
		}}
	}

	recs := make([]Recommendation, 0, len(keywords))
	for _, kw := range keywords {
		recs = append(recs, Recommendation{
			Title:          "Recent papers on " + kw,
			Description:    "Search for the latest publications about " + kw + ".",
			Type:           "topic",
			RelevanceScore: 0.5,
		})
	}
	return recs
}
