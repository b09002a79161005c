package agents

import (
	"context"
	"strings"
	"time"

	"research-assistant/internal/llm"
)

// AnalysisAgent handles the reasoning operations of a plan: comparing
// papers or methods, explaining concepts, and generating research
// questions from gathered material.
type AnalysisAgent struct {
	*BaseAgent
	provider llm.Provider
}

// NewAnalysisAgent creates an analysis agent
func NewAnalysisAgent(provider llm.Provider) *AnalysisAgent {
	return &AnalysisAgent{
		BaseAgent: NewBaseAgent("analysis_agent"),
		provider:  provider,
	}
}

const comparePrompt = `Compare the research methods or papers described below.

Respond with a JSON object:
{
  "comparison_summary": "<overall comparison summary>",
  "comparison_table": {"<aspect>": "<how the subjects differ on it>", ...},
  "key_differences": ["<difference>", ...],
  "synthesis": "<when to prefer which>",
  "recommendations": "<practical guidance on choosing between them>"
}`

// Compare produces a structured comparison from prior retrieval
// results. Inputs come from the dependency tasks of the plan.
func (a *AnalysisAgent) Compare(ctx context.Context, task Task, inputs []RetrievalResult) RetrievalResult {
	start := time.Now()
	a.LogStart(ctx, len(task.Description))

	material := renderInputs(inputs, 4000)
	raw := a.Complete(ctx, a.provider, []llm.Message{
		llm.SystemMessage(comparePrompt),
		llm.UserMessage(task.Description + "\n\nMaterial:\n" + material),
	}, llm.CompletionOptions{Temperature: 0.3, JSONOutput: true})

	var comparison Comparison
	if err := decodeJSON(raw, &comparison); err != nil {
		a.LogError(ctx, err, "Failed to parse comparison")
		comparison = Comparison{Summary: a.TruncateContent(raw, 2000)}
	}

	a.LogSuccess(ctx, map[string]interface{}{"differences": len(comparison.KeyDifferences)}, time.Since(start))
	return RetrievalResult{
		Kind:       KindComparison,
		Query:      task.Description,
		Source:     "analysis",
		Comparison: &comparison,
	}
}

const explainPrompt = `Explain the concept for a newcomer to the field.

Respond with a JSON object:
{
  "concept": "<the concept>",
  "simple_definition": "<one or two plain sentences>",
  "detailed_explanation": "<a few paragraphs>",
  "real_world_examples": ["<example>", ...],
  "related_concepts": ["<concept>", ...],
  "research_questions": ["<open question>", ...]
}`

// Explain builds a layered explanation of a concept, optionally
// grounded in retrieved material.
func (a *AnalysisAgent) Explain(ctx context.Context, task Task, inputs []RetrievalResult) RetrievalResult {
	start := time.Now()
	a.LogStart(ctx, len(task.Description))

	user := task.Description
	if material := renderInputs(inputs, 4000); material != "" {
		user += "\n\nReference material:\n" + material
	}

	raw := a.Complete(ctx, a.provider, []llm.Message{
		llm.SystemMessage(explainPrompt),
		llm.UserMessage(user),
	}, llm.CompletionOptions{Temperature: 0.3, JSONOutput: true})

	var explanation Explanation
	if err := decodeJSON(raw, &explanation); err != nil {
		a.LogError(ctx, err, "Failed to parse explanation")
		explanation = Explanation{
			Concept:             task.Description,
			DetailedExplanation: a.TruncateContent(raw, 2000),
		}
	}

	a.LogSuccess(ctx, map[string]interface{}{"examples": len(explanation.RealWorldExamples)}, time.Since(start))
	return RetrievalResult{
		Kind:        KindExplanation,
		Query:       task.Description,
		Source:      "analysis",
		Explanation: &explanation,
	}
}

const questionPrompt = `Generate novel, specific research questions about the topic,
grounded in the gaps visible in the provided material.

Respond with a JSON object:
{
  "concept": "<the topic>",
  "detailed_explanation": "<brief state of the art>",
  "research_questions": ["<question>", ...]
}`

// GenerateQuestions proposes research questions from retrieved
// material, reusing the explanation shape for the answer.
func (a *AnalysisAgent) GenerateQuestions(ctx context.Context, task Task, inputs []RetrievalResult) RetrievalResult {
	start := time.Now()
	a.LogStart(ctx, len(task.Description))

	user := task.Description
	if material := renderInputs(inputs, 4000); material != "" {
		user += "\n\nMaterial:\n" + material
	}

	raw := a.Complete(ctx, a.provider, []llm.Message{
		llm.SystemMessage(questionPrompt),
		llm.UserMessage(user),
	}, llm.CompletionOptions{Temperature: 0.6, JSONOutput: true})

	var explanation Explanation
	if err := decodeJSON(raw, &explanation); err != nil {
		a.LogError(ctx, err, "Failed to parse research questions")
		explanation = Explanation{
			Concept:           task.Description,
			ResearchQuestions: []string{a.TruncateContent(raw, 500)},
		}
	}

	a.LogSuccess(ctx, map[string]interface{}{"questions": len(explanation.ResearchQuestions)}, time.Since(start))
	return RetrievalResult{
		Kind:        KindExplanation,
		Query:       task.Description,
		Source:      "analysis",
		Explanation: &explanation,
	}
}

const analyzePrompt = `Analyze the paper's structure: problem, method, results, limitations.
Respond with a concise analysis in plain prose.`

// AnalyzePaper extracts the key components from the best paper of the
// dependency results.
func (a *AnalysisAgent) AnalyzePaper(ctx context.Context, task Task, inputs []RetrievalResult) RetrievalResult {
	start := time.Now()
	a.LogStart(ctx, len(task.Description))

	material := renderInputs(inputs, 6000)
	if material == "" {
		return ErrorResult(task.Description, "no paper available to analyze")
	}

	text := a.Complete(ctx, a.provider, []llm.Message{
		llm.SystemMessage(analyzePrompt),
		llm.UserMessage(task.Description + "\n\n" + material),
	}, llm.CompletionOptions{Temperature: 0.2, MaxTokens: 1500})

	a.LogSuccess(ctx, map[string]interface{}{"length": len(text)}, time.Since(start))
	return RetrievalResult{
		Kind:        KindExplanation,
		Query:       task.Description,
		Source:      "analysis",
		Explanation: &Explanation{Concept: task.Description, DetailedExplanation: text},
	}
}

// renderInputs flattens dependency results into prompt material,
// bounded per result so a large paper list cannot blow the context.
func renderInputs(inputs []RetrievalResult, maxPerInput int) string {
	var b strings.Builder
	for _, in := range inputs {
		switch in.Kind {
		case KindPapers:
			for _, p := range in.Papers {
				b.WriteString("Paper: ")
				b.WriteString(p.Title)
				b.WriteString("\nAuthors: ")
				b.WriteString(strings.Join(p.Authors, ", "))
				b.WriteString("\nAbstract: ")
				b.WriteString(truncate(p.Abstract, maxPerInput))
				b.WriteString("\n\n")
			}
		case KindWebItems:
			for _, item := range in.WebItems {
				b.WriteString("Source: ")
				b.WriteString(item.Title)
				b.WriteString(" (")
				b.WriteString(item.URL)
				b.WriteString(")\n")
				b.WriteString(truncate(item.Content, maxPerInput))
				b.WriteString("\n\n")
			}
		case KindComparison:
			if in.Comparison != nil {
				b.WriteString("Comparison: ")
				b.WriteString(truncate(in.Comparison.Summary, maxPerInput))
				b.WriteString("\n\n")
			}
		case KindExplanation:
			if in.Explanation != nil {
				b.WriteString("Explanation of ")
				b.WriteString(in.Explanation.Concept)
				b.WriteString(": ")
				b.WriteString(truncate(in.Explanation.DetailedExplanation, maxPerInput))
				b.WriteString("\n\n")
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
