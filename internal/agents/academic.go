package agents

import (
	"context"
	"sort"
	"strings"
	"time"

	"research-assistant/internal/clients"
	"research-assistant/internal/llm"
)

// AcademicAgent retrieves papers from arXiv, filters them by the
// requested time frame, and scores each one for relevance to the
// original query.
type AcademicAgent struct {
	*BaseAgent
	provider   llm.Provider
	arxiv      clients.ArxivClientInterface
	maxResults int
}

// NewAcademicAgent creates an academic search agent
func NewAcademicAgent(provider llm.Provider, arxiv clients.ArxivClientInterface, maxResults int) *AcademicAgent {
	return &AcademicAgent{
		BaseAgent:  NewBaseAgent("academic_agent"),
		provider:   provider,
		arxiv:      arxiv,
		maxResults: maxResults,
	}
}

const queryRewritePrompt = `Convert the research request into a concise arXiv search query.
Keep only the technical terms and key concepts. Remove conversational filler.
Respond with the search query text only, no quotes, no explanation.`

// Execute runs a paper search task. Failures are reported as an error
// result so sibling tasks keep running.
func (a *AcademicAgent) Execute(ctx context.Context, task Task, intent IntentRecord) RetrievalResult {
	start := time.Now()
	a.LogStart(ctx, len(task.Description))

	query := a.rewriteQuery(ctx, task.Description)

	papers, err := a.arxiv.Query(ctx, a.Name(), query, a.maxResults)
	if err != nil {
		wrapped := NewAgentError(a.Name(), "arXiv query failed", err)
		a.LogError(ctx, wrapped, "arxiv_query")
		return ErrorResult(query, "academic search failed: "+err.Error())
	}

	papers = filterByTimeFrame(papers, intent.TimeFrame, time.Now())
	scored := a.assessPapers(ctx, query, papers)
	sortPapersByRelevance(scored)
	for i := range scored {
		scored[i].Summary = a.Summarize(ctx, scored[i])
	}

	a.LogSuccess(ctx, map[string]interface{}{"paper_count": len(scored)}, time.Since(start))
	return RetrievalResult{
		Kind:   KindPapers,
		Query:  query,
		Source: "arxiv",
		Papers: scored,
	}
}

// rewriteQuery distills the task description into search terms. A
// provider failure leaves the description untouched.
func (a *AcademicAgent) rewriteQuery(ctx context.Context, description string) string {
	raw := a.Complete(ctx, a.provider, []llm.Message{
		llm.SystemMessage(queryRewritePrompt),
		llm.UserMessage(description),
	}, llm.CompletionOptions{Temperature: 0.0, MaxTokens: 100})

	rewritten := strings.Trim(strings.TrimSpace(raw), `"'`)
	if rewritten == "" || strings.HasPrefix(rewritten, "provider error") || len(rewritten) > 300 {
		return description
	}
	return rewritten
}

// filterByTimeFrame drops papers published before the window implied by
// the intent. Unknown time frames keep everything.
func filterByTimeFrame(papers []clients.ArxivPaper, timeFrame string, now time.Time) []clients.ArxivPaper {
	var cutoff time.Time
	switch timeFrame {
	case "past_week":
		cutoff = now.AddDate(0, 0, -7)
	case "past_month":
		cutoff = now.AddDate(0, -1, 0)
	case "past_year":
		cutoff = now.AddDate(-1, 0, 0)
	default:
		return papers
	}

	filtered := make([]clients.ArxivPaper, 0, len(papers))
	for _, p := range papers {
		if p.PublishedDate.IsZero() || !p.PublishedDate.Before(cutoff) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

const relevancePrompt = `Assess how relevant the paper is to the research query.

Respond with a JSON object:
{"score": <0.0-1.0>, "reason": "<one sentence>", "key_insights": ["<insight>", ...]}`

// assessPapers attaches a relevance assessment to each paper. A paper
// whose assessment cannot be parsed gets a neutral score so it is never
// silently dropped.
func (a *AcademicAgent) assessPapers(ctx context.Context, query string, papers []clients.ArxivPaper) []Paper {
	result := make([]Paper, 0, len(papers))
	for _, src := range papers {
		paper := Paper{
			ArxivID:       src.ArxivID,
			Title:         src.Title,
			Authors:       src.Authors,
			Abstract:      src.Abstract,
			PublishedDate: src.PublishedDate,
			Link:          src.Link,
			PDFLink:       src.PDFLink,
			Categories:    src.Categories,
		}
		paper.Relevance = a.assessOne(ctx, query, paper)
		result = append(result, paper)
	}
	return result
}

func (a *AcademicAgent) assessOne(ctx context.Context, query string, paper Paper) *RelevanceAssessment {
	raw := a.Complete(ctx, a.provider, []llm.Message{
		llm.SystemMessage(relevancePrompt),
		llm.UserMessage("Query: " + query + "\n\nTitle: " + paper.Title + "\nAbstract: " + a.TruncateContent(paper.Abstract, 1500)),
	}, llm.CompletionOptions{Temperature: 0.0, JSONOutput: true})

	var assessment RelevanceAssessment
	if err := decodeJSON(raw, &assessment); err != nil {
		return &RelevanceAssessment{Score: 0.5, Reason: "Relevance could not be determined"}
	}
	if assessment.Score < 0 {
		assessment.Score = 0
	}
	if assessment.Score > 1 {
		assessment.Score = 1
	}
	return &assessment
}

// sortPapersByRelevance orders papers best-first, but only when every
// paper carries a score. A mixed list keeps the arXiv relevance order.
func sortPapersByRelevance(papers []Paper) {
	for _, p := range papers {
		if p.Relevance == nil {
			return
		}
	}
	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].Relevance.Score > papers[j].Relevance.Score
	})
}

const paperSummaryPrompt = `Summarize the paper for a researcher.
Cover: the problem addressed, the approach, key findings, and limitations.
Keep it under 200 words. Respond with the summary text only.`

// Summarize generates a short summary for a single paper. A provider
// failure yields an empty summary rather than error text.
func (a *AcademicAgent) Summarize(ctx context.Context, paper Paper) string {
	summary := a.Complete(ctx, a.provider, []llm.Message{
		llm.SystemMessage(paperSummaryPrompt),
		llm.UserMessage("Title: " + paper.Title + "\nAuthors: " + strings.Join(paper.Authors, ", ") + "\nAbstract: " + a.TruncateContent(paper.Abstract, 3000)),
	}, llm.CompletionOptions{Temperature: 0.3, MaxTokens: 500})

	if strings.HasPrefix(summary, "provider error") {
		return ""
	}
	return strings.TrimSpace(summary)
}
