package agents

import (
	"context"
	"sort"
	"time"

	"research-assistant/internal/clients"
	"research-assistant/internal/llm"
)

// WebSearchAgent retrieves general web results through Tavily. Without
// an API key it degrades to model-generated results so the pipeline
// always has something to synthesize from.
type WebSearchAgent struct {
	*BaseAgent
	provider   llm.Provider
	tavily     clients.TavilyClientInterface
	maxResults int
}

// NewWebSearchAgent creates a web search agent
func NewWebSearchAgent(provider llm.Provider, tavily clients.TavilyClientInterface, maxResults int) *WebSearchAgent {
	return &WebSearchAgent{
		BaseAgent:  NewBaseAgent("web_search_agent"),
		provider:   provider,
		tavily:     tavily,
		maxResults: maxResults,
	}
}

// Execute runs a web search task, assessing each item for relevance.
func (w *WebSearchAgent) Execute(ctx context.Context, task Task, intent IntentRecord) RetrievalResult {
	start := time.Now()
	w.LogStart(ctx, len(task.Description))

	result := w.Search(ctx, task.Description)

	w.LogSuccess(ctx, map[string]interface{}{
		"item_count": len(result.WebItems),
		"source":     result.Source,
	}, time.Since(start))
	return result
}

// Search performs the actual retrieval and scoring for a query string.
func (w *WebSearchAgent) Search(ctx context.Context, query string) RetrievalResult {
	var items []WebItem
	source := "tavily"

	if w.tavily.Configured() {
		resp, err := w.tavily.Search(ctx, w.Name(), query, w.maxResults)
		if err != nil {
			w.LogError(ctx, NewAgentError(w.Name(), "tavily search failed", err), "tavily_search")
			items = w.simulateResults(ctx, query)
			source = "simulated"
		} else {
			for _, r := range resp.Results {
				items = append(items, WebItem{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score})
			}
		}
	} else {
		items = w.simulateResults(ctx, query)
		source = "simulated"
	}

	items = w.assessItems(ctx, query, items)
	sortItemsByRelevance(items)

	return RetrievalResult{
		Kind:     KindWebItems,
		Query:    query,
		Source:   source,
		WebItems: items,
	}
}

const simulatePrompt = `Produce plausible web search results for the query from your knowledge.

Respond with a JSON array of objects:
[{"title": "...", "url": "...", "content": "<2-3 sentence summary>"}]

Use real, well-known URLs where possible. Return at most 5 results.`

// simulateResults asks the model to stand in for the search API.
func (w *WebSearchAgent) simulateResults(ctx context.Context, query string) []WebItem {
	raw := w.Complete(ctx, w.provider, []llm.Message{
		llm.SystemMessage(simulatePrompt),
		llm.UserMessage(query),
	}, llm.CompletionOptions{Temperature: 0.5, JSONOutput: true})

	var items []WebItem
	if err := decodeJSONList(raw, "results", &items); err != nil {
		w.logger.WithFields(map[string]interface{}{
			"agent":          w.Name(),
			"correlation_id": getCorrelationID(ctx),
		}).Warn("Failed to parse simulated search results")
		return nil
	}
	return items
}

// assessItems attaches relevance assessments, mirroring the academic
// agent's neutral-score fallback for unparseable assessments.
func (w *WebSearchAgent) assessItems(ctx context.Context, query string, items []WebItem) []WebItem {
	for i := range items {
		raw := w.Complete(ctx, w.provider, []llm.Message{
			llm.SystemMessage(relevancePrompt),
			llm.UserMessage("Query: " + query + "\n\nTitle: " + items[i].Title + "\nContent: " + w.TruncateContent(items[i].Content, 1500)),
		}, llm.CompletionOptions{Temperature: 0.0, JSONOutput: true})

		var assessment RelevanceAssessment
		if err := decodeJSON(raw, &assessment); err != nil {
			items[i].Relevance = &RelevanceAssessment{Score: 0.5, Reason: "Relevance could not be determined"}
			continue
		}
		if assessment.Score < 0 {
			assessment.Score = 0
		}
		if assessment.Score > 1 {
			assessment.Score = 1
		}
		items[i].Relevance = &assessment
	}
	return items
}

func sortItemsByRelevance(items []WebItem) {
	for _, item := range items {
		if item.Relevance == nil {
			return
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Relevance.Score > items[j].Relevance.Score
	})
}
