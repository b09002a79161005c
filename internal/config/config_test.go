package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.PrimaryModel)
	assert.Equal(t, "gpt-4o-mini", cfg.SecondaryModel)
	assert.Equal(t, "8000", cfg.ServerPort)
	assert.Equal(t, "conversation-summary-jobs", cfg.KafkaTopicSummary)
	assert.Equal(t, 10, cfg.MaxSearchResults)
	assert.Equal(t, 2, cfg.FallbackMinResults)
	assert.Equal(t, 10, cfg.MaxDocsPerCategory)
	assert.Equal(t, 10, cfg.ContextMessageLimit)
	assert.Equal(t, 5, cfg.RecommendationLimit)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoad_MissingProviderKey(t *testing.T) {
	t.Setenv("PRIMARY_MODEL", "claude-3-5-sonnet-latest")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "irrelevant")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestLoad_UnsupportedModel(t *testing.T) {
	t.Setenv("PRIMARY_MODEL", "mystery-model")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model")
}

func TestLoad_TavilyKeyOptional(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("TAVILY_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.TavilyAPIKey)
}

func TestLoad_CORSOriginsParsed(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
}

func TestLoad_IntOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("FALLBACK_MIN_RESULTS", "3")
	t.Setenv("RECOMMENDATION_LIMIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.FallbackMinResults)
	// Unparseable values fall back to the default.
	assert.Equal(t, 5, cfg.RecommendationLimit)
}
