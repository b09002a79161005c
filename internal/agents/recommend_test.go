package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommender_Generate(t *testing.T) {
	provider := &fakeProvider{responses: []string{`[
		{"title": "Linear attention", "description": "Cheaper variants.", "type": "topic", "relevance_score": 0.9},
		{"title": "Sparse attention", "description": "Sparsity patterns.", "type": "topic", "relevance_score": 0.7}
	]`}}
	recommender := NewRecommender(provider, 5)

	recs := recommender.Generate(context.Background(), "how does attention work", "Attention computes weighted averages.")

	require.Len(t, recs, 2)
	assert.Equal(t, "Linear attention", recs[0].Title)
	assert.True(t, recs[0].RelevanceScore >= recs[1].RelevanceScore)
}

func TestRecommender_LimitApplied(t *testing.T) {
	provider := &fakeProvider{responses: []string{`[
		{"title": "a", "relevance_score": 0.9},
		{"title": "b", "relevance_score": 0.8},
		{"title": "c", "relevance_score": 0.7},
		{"title": "d", "relevance_score": 0.6}
	]`}}
	recommender := NewRecommender(provider, 2)

	recs := recommender.Generate(context.Background(), "q", "r")

	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].Title)
}

func TestRecommender_KeywordFallback(t *testing.T) {
	provider := &fakeProvider{responses: []string{"not json"}}
	recommender := NewRecommender(provider, 5)

	recs := recommender.Generate(context.Background(), "explain the transformer architecture basics", "response text")

	require.NotEmpty(t, recs)
	// Stopwords never become recommendations.
	for _, rec := range recs {
		assert.NotContains(t, rec.Title, " the")
		assert.NotContains(t, rec.Title, "explain")
	}
	assert.Contains(t, recs[0].Title, "transformer")
}

func TestRecommender_KeywordFallbackAllStopwords(t *testing.T) {
	provider := &fakeProvider{err: assert.AnError}
	recommender := NewRecommender(provider, 5)

	recs := recommender.Generate(context.Background(), "can you do it", "response")

	require.Len(t, recs, 1)
	assert.Equal(t, "topic", recs[0].Type)
}
