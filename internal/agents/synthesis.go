package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"research-assistant/internal/llm"
)

// SynthesisAgent combines retrieval results into one cited answer.
type SynthesisAgent struct {
	*BaseAgent
	provider           llm.Provider
	maxDocsPerCategory int
}

// NewSynthesisAgent creates a synthesis agent
func NewSynthesisAgent(provider llm.Provider, maxDocsPerCategory int) *SynthesisAgent {
	return &SynthesisAgent{
		BaseAgent:          NewBaseAgent("synthesis_agent"),
		provider:           provider,
		maxDocsPerCategory: maxDocsPerCategory,
	}
}

// SynthesisOutput is the user-facing answer plus the sources it cites.
type SynthesisOutput struct {
	Response      string   `json:"response"`
	Sources       []Source `json:"sources"`
	SourcesUsed   []string `json:"sources_used"`
	CitationCount int      `json:"citation_count"`
}

const synthesisSystemPrompt = `You are a research assistant synthesizing an answer from gathered material.

Rules:
- Answer the user's question directly, citing the material by source title.
- Cite only documents actually supplied below. Never invent sources or findings.
- Academic findings take precedence over general web content when they conflict.
- Use markdown: a short heading per major aspect, bullets for lists of findings,
  and a table only for side-by-side comparisons.
- End with a "Sources Used" section listing every source you cited.
- If the material does not cover an aspect of the question, say so plainly.`

const insufficientInfoMessage = "I wasn't able to find enough relevant information to answer that question. " +
	"Could you rephrase it, or narrow it down to a more specific topic?"

// Synthesize produces the final response text. Without any usable
// material it returns a fixed insufficient-information message rather
// than letting the model improvise an answer.
func (s *SynthesisAgent) Synthesize(ctx context.Context, query string, results []RetrievalResult, history []llm.Message) (SynthesisOutput, error) {
	start := time.Now()
	s.LogStart(ctx, len(query))

	papers, webItems, analyses := partitionResults(results, s.maxDocsPerCategory)
	sources := extractSources(papers, webItems)

	if len(papers) == 0 && len(webItems) == 0 && len(analyses) == 0 {
		return SynthesisOutput{Response: insufficientInfoMessage}, nil
	}

	messages := []llm.Message{llm.SystemMessage(synthesisSystemPrompt)}
	messages = append(messages, lastTurns(history, 5)...)
	messages = append(messages, llm.UserMessage(buildSynthesisPrompt(query, papers, webItems, analyses)))

	text, err := s.provider.Complete(ctx, messages, llm.CompletionOptions{Temperature: 0.3, MaxTokens: 3000})
	if err != nil {
		wrapped := NewAgentError(s.Name(), "synthesis completion failed", err)
		s.LogError(ctx, wrapped, "synthesis")
		return SynthesisOutput{}, wrapped
	}

	text = repairMarkdownTables(text)
	used := citedSources(text, sources)
	text = appendCitationDisclaimer(text, sources, len(used) > 0)

	s.LogSuccess(ctx, map[string]interface{}{
		"response_length": len(text),
		"source_count":    len(sources),
		"citation_count":  len(used),
	}, time.Since(start))
	return SynthesisOutput{
		Response:      text,
		Sources:       sources,
		SourcesUsed:   used,
		CitationCount: len(used),
	}, nil
}

// partitionResults splits retrieval output into the three document
// categories the prompt is built from, capped per category.
func partitionResults(results []RetrievalResult, maxPerCategory int) (papers []Paper, webItems []WebItem, analyses []RetrievalResult) {
	for _, r := range results {
		switch r.Kind {
		case KindPapers:
			papers = append(papers, r.Papers...)
			// A fallback-augmented academic result carries web items too.
			webItems = append(webItems, r.WebItems...)
		case KindWebItems:
			webItems = append(webItems, r.WebItems...)
		case KindComparison, KindExplanation:
			analyses = append(analyses, r)
		}
	}
	if len(papers) > maxPerCategory {
		papers = papers[:maxPerCategory]
	}
	if len(webItems) > maxPerCategory {
		webItems = webItems[:maxPerCategory]
	}
	if len(analyses) > maxPerCategory {
		analyses = analyses[:maxPerCategory]
	}
	return papers, webItems, analyses
}

// extractSources builds the citation list, one entry per document. A
// paper with a PDF link yields a second source entry pointing at the
// PDF. The list is not deduplicated, so a document can appear as both
// an abstract-page and a PDF source.
func extractSources(papers []Paper, webItems []WebItem) []Source {
	var sources []Source

	add := func(src Source) {
		if src.URL == "" {
			return
		}
		sources = append(sources, src)
	}

	for _, p := range papers {
		score := 0.0
		if p.Relevance != nil {
			score = p.Relevance.Score
		}
		add(Source{Title: p.Title, URL: p.Link, Type: SourceAcademic, Relevance: score})
		if p.PDFLink != "" {
			add(Source{Title: p.Title + " (PDF)", URL: p.PDFLink, Type: SourceAcademicPDF, Relevance: score})
		}
	}
	for _, item := range webItems {
		score := item.Score
		if item.Relevance != nil {
			score = item.Relevance.Score
		}
		add(Source{Title: item.Title, URL: item.URL, Type: SourceWeb, Relevance: score})
	}
	return sources
}

func buildSynthesisPrompt(query string, papers []Paper, webItems []WebItem, analyses []RetrievalResult) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n")

	if len(papers) > 0 {
		b.WriteString("\n## Academic papers\n")
		for _, p := range papers {
			fmt.Fprintf(&b, "- %s (%s)\n  %s\n", p.Title, strings.Join(p.Authors, ", "), truncate(p.Abstract, 800))
		}
	}
	if len(webItems) > 0 {
		b.WriteString("\n## Web sources\n")
		for _, item := range webItems {
			fmt.Fprintf(&b, "- %s\n  %s\n", item.Title, truncate(item.Content, 800))
		}
	}
	if len(analyses) > 0 {
		b.WriteString("\n## Analysis\n")
		b.WriteString(renderInputs(analyses, 2000))
		b.WriteString("\n")
	}
	return b.String()
}

var tableRowRe = regexp.MustCompile(`^\s*\|.*\|\s*$`)
var tableSeparatorRe = regexp.MustCompile(`^\s*\|[\s:|-]+\|\s*$`)

// repairMarkdownTables inserts a missing header separator row after the
// first row of any table the model emitted without one. Renderers drop
// the whole table otherwise.
func repairMarkdownTables(text string) string {
	lines := strings.Split(text, "\n")
	var out []string

	for i := 0; i < len(lines); i++ {
		out = append(out, lines[i])
		if !tableRowRe.MatchString(lines[i]) {
			continue
		}
		prevIsRow := i > 0 && tableRowRe.MatchString(lines[i-1])
		nextIsRow := i+1 < len(lines) && tableRowRe.MatchString(lines[i+1])
		nextIsSep := i+1 < len(lines) && tableSeparatorRe.MatchString(lines[i+1])
		if !prevIsRow && nextIsRow && !nextIsSep {
			cols := strings.Count(strings.Trim(lines[i], " "), "|") - 1
			if cols < 1 {
				cols = 1
			}
			sep := "|" + strings.Repeat("---|", cols)
			out = append(out, sep)
		}
	}
	return strings.Join(out, "\n")
}

// citedSources returns the titles of sources the response body
// references by name. Matching is on the first 12 characters of the
// title, case-insensitive.
func citedSources(text string, sources []Source) []string {
	lower := strings.ToLower(text)
	var used []string
	seen := make(map[string]bool)
	for _, src := range sources {
		title := strings.ToLower(src.Title)
		if len(title) >= 12 {
			title = title[:12]
		}
		if title == "" || !strings.Contains(lower, title) {
			continue
		}
		if !seen[src.Title] {
			seen[src.Title] = true
			used = append(used, src.Title)
		}
	}
	return used
}

// appendCitationDisclaimer adds a sources footer when the response body
// never references any gathered source by name.
func appendCitationDisclaimer(text string, sources []Source, cited bool) string {
	if len(sources) == 0 || cited {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n---\n*This answer draws on the following sources:*\n")
	for _, src := range sources {
		fmt.Fprintf(&b, "- [%s](%s)\n", src.Title, src.URL)
	}
	return b.String()
}
