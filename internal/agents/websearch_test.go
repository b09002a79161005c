package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-assistant/internal/clients"
)

func TestWebSearchAgent_TavilyResults(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"score": 0.8, "reason": "good match"}`,
		`{"score": 0.3, "reason": "weak match"}`,
	}}
	tavily := &fakeTavilyClient{
		configured: true,
		response: &clients.TavilyResponse{
			Query: "rust async runtimes",
			Results: []clients.TavilyResult{
				{Title: "Tokio Internals", URL: "https://example.com/tokio", Content: "About tokio", Score: 0.7},
				{Title: "Unrelated Post", URL: "https://example.com/other", Content: "Something else", Score: 0.2},
			},
		},
	}
	agent := NewWebSearchAgent(provider, tavily, 10)

	result := agent.Execute(context.Background(), Task{Description: "rust async runtimes"}, IntentRecord{})

	assert.Equal(t, KindWebItems, result.Kind)
	assert.Equal(t, "tavily", result.Source)
	require.Len(t, result.WebItems, 2)
	assert.Equal(t, "Tokio Internals", result.WebItems[0].Title)
	assert.InDelta(t, 0.8, result.WebItems[0].Relevance.Score, 0.001)
}

func TestWebSearchAgent_SimulatedWhenUnconfigured(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`[{"title": "Simulated Result", "url": "https://example.com/sim", "content": "Plausible content"}]`,
		`{"score": 0.6, "reason": "ok"}`,
	}}
	tavily := &fakeTavilyClient{configured: false}
	agent := NewWebSearchAgent(provider, tavily, 10)

	result := agent.Search(context.Background(), "graph databases")

	assert.Equal(t, "simulated", result.Source)
	require.Len(t, result.WebItems, 1)
	assert.Equal(t, "Simulated Result", result.WebItems[0].Title)
	// The real client was never consulted.
	assert.Empty(t, tavily.lastQuery)
}

func TestWebSearchAgent_SimulatedOnTavilyError(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`[{"title": "Backup Result", "url": "https://example.com/backup", "content": "Fallback"}]`,
		`{"score": 0.5, "reason": "ok"}`,
	}}
	tavily := &fakeTavilyClient{configured: true, err: errors.New("quota exceeded")}
	agent := NewWebSearchAgent(provider, tavily, 10)

	result := agent.Search(context.Background(), "vector search")

	assert.Equal(t, "simulated", result.Source)
	require.Len(t, result.WebItems, 1)
}

func TestWebSearchAgent_SimulationParseFailureYieldsEmpty(t *testing.T) {
	provider := &fakeProvider{responses: []string{"garbage output"}}
	tavily := &fakeTavilyClient{configured: false}
	agent := NewWebSearchAgent(provider, tavily, 10)

	result := agent.Search(context.Background(), "anything")

	assert.Equal(t, KindWebItems, result.Kind)
	assert.Empty(t, result.WebItems)
}
