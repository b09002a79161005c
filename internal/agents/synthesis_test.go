package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paperResult() RetrievalResult {
	return RetrievalResult{
		Kind:   KindPapers,
		Query:  "attention",
		Source: "arxiv",
		Papers: []Paper{{
			ArxivID:   "2101.00001",
			Title:     "Attention Survey",
			Authors:   []string{"A. Researcher"},
			Abstract:  "A survey of attention mechanisms.",
			Link:      "https://arxiv.org/abs/2101.00001",
			PDFLink:   "https://arxiv.org/pdf/2101.00001",
			Relevance: &RelevanceAssessment{Score: 0.9},
		}},
	}
}

func webResult() RetrievalResult {
	return RetrievalResult{
		Kind:   KindWebItems,
		Query:  "attention",
		Source: "tavily",
		WebItems: []WebItem{{
			Title:   "Attention Explained",
			URL:     "https://example.com/attention",
			Content: "A blog post about attention.",
			Score:   0.6,
		}},
	}
}

func TestSynthesisAgent_ZeroDocumentsShortCircuits(t *testing.T) {
	provider := &fakeProvider{}
	agent := NewSynthesisAgent(provider, 10)

	output, err := agent.Synthesize(context.Background(), "anything", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, insufficientInfoMessage, output.Response)
	assert.Empty(t, output.Sources)
	assert.Equal(t, 0, provider.callCount())
}

func TestSynthesisAgent_ErrorResultsOnlyShortCircuits(t *testing.T) {
	provider := &fakeProvider{}
	agent := NewSynthesisAgent(provider, 10)

	results := []RetrievalResult{ErrorResult("q", "search failed")}
	output, err := agent.Synthesize(context.Background(), "anything", results, nil)

	require.NoError(t, err)
	assert.Equal(t, insufficientInfoMessage, output.Response)
}

func TestSynthesisAgent_SourceExtraction(t *testing.T) {
	provider := &fakeProvider{responses: []string{"According to the Attention Survey, attention works well."}}
	agent := NewSynthesisAgent(provider, 10)

	output, err := agent.Synthesize(context.Background(), "how does attention work", []RetrievalResult{paperResult(), webResult()}, nil)

	require.NoError(t, err)
	require.Len(t, output.Sources, 3)
	assert.Equal(t, SourceAcademic, output.Sources[0].Type)
	assert.Equal(t, "https://arxiv.org/abs/2101.00001", output.Sources[0].URL)
	assert.Equal(t, SourceAcademicPDF, output.Sources[1].Type)
	assert.Equal(t, "https://arxiv.org/pdf/2101.00001", output.Sources[1].URL)
	assert.Equal(t, SourceWeb, output.Sources[2].Type)
	assert.InDelta(t, 0.9, output.Sources[0].Relevance, 0.001)

	// Both the abstract-page and PDF variants match the cited title.
	assert.Equal(t, 2, output.CitationCount)
	assert.Contains(t, output.SourcesUsed, "Attention Survey")
}

func TestSynthesisAgent_DisclaimerWhenUncited(t *testing.T) {
	provider := &fakeProvider{responses: []string{"Attention computes weighted averages over inputs."}}
	agent := NewSynthesisAgent(provider, 10)

	output, err := agent.Synthesize(context.Background(), "how does attention work", []RetrievalResult{paperResult()}, nil)

	require.NoError(t, err)
	assert.Contains(t, output.Response, "draws on the following sources")
	assert.Contains(t, output.Response, "https://arxiv.org/abs/2101.00001")
}

func TestSynthesisAgent_NoDisclaimerWhenCited(t *testing.T) {
	provider := &fakeProvider{responses: []string{"The Attention Survey shows that attention computes weighted averages."}}
	agent := NewSynthesisAgent(provider, 10)

	output, err := agent.Synthesize(context.Background(), "how does attention work", []RetrievalResult{paperResult()}, nil)

	require.NoError(t, err)
	assert.NotContains(t, output.Response, "draws on the following sources")
}

func TestSynthesisAgent_ProviderErrorPropagates(t *testing.T) {
	provider := &fakeProvider{err: assert.AnError}
	agent := NewSynthesisAgent(provider, 10)

	_, err := agent.Synthesize(context.Background(), "question", []RetrievalResult{paperResult()}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthesis")
}

func TestSynthesisAgent_FallbackWebItemsIncluded(t *testing.T) {
	result := paperResult()
	result.WebItems = webResult().WebItems
	result.UsedFallback = true

	papers, webItems, _ := partitionResults([]RetrievalResult{result}, 10)

	assert.Len(t, papers, 1)
	assert.Len(t, webItems, 1)
}

func TestSynthesisAgent_CategoryCap(t *testing.T) {
	result := RetrievalResult{Kind: KindPapers}
	for i := 0; i < 25; i++ {
		result.Papers = append(result.Papers, Paper{Title: "p"})
	}

	papers, _, _ := partitionResults([]RetrievalResult{result}, 10)

	assert.Len(t, papers, 10)
}

func TestRepairMarkdownTables(t *testing.T) {
	broken := strings.Join([]string{
		"Intro text",
		"| Aspect | BERT | GPT |",
		"| Goal | encoding | generation |",
		"Closing text",
	}, "\n")

	repaired := repairMarkdownTables(broken)

	lines := strings.Split(repaired, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "|---|---|---|", lines[2])

	// A well-formed table is untouched.
	wellFormed := strings.Join([]string{
		"| A | B |",
		"|---|---|",
		"| 1 | 2 |",
	}, "\n")
	assert.Equal(t, wellFormed, repairMarkdownTables(wellFormed))
}

func TestExtractSources_KeepsRepeats(t *testing.T) {
	papers := []Paper{
		{Title: "Same Paper", Link: "https://arxiv.org/abs/1", PDFLink: "https://arxiv.org/pdf/1", Relevance: &RelevanceAssessment{Score: 0.5}},
		{Title: "Same Paper", Link: "https://arxiv.org/abs/1", Relevance: &RelevanceAssessment{Score: 0.5}},
	}

	sources := extractSources(papers, nil)

	assert.Len(t, sources, 3)
	assert.Equal(t, SourceAcademicPDF, sources[1].Type)
}
