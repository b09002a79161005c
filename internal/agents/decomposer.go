package agents

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"research-assistant/internal/llm"
)

// TaskDecomposer breaks a complex research request into a DAG of atomic
// sub-tasks. The returned plan is always non-empty and always in an
// execution-feasible order: dependencies precede dependents, ties are
// broken by ascending priority, and cycles are resolved by clearing the
// offending dependency set.
type TaskDecomposer struct {
	*BaseAgent
	provider llm.Provider
}

// NewTaskDecomposer creates a task decomposer
func NewTaskDecomposer(provider llm.Provider) *TaskDecomposer {
	return &TaskDecomposer{
		BaseAgent: NewBaseAgent("task_decomposer"),
		provider:  provider,
	}
}

type taskTemplate string

const (
	templatePaperSummary     taskTemplate = "paper_summary"
	templateMethodComparison taskTemplate = "method_comparison"
	templateConceptExplain   taskTemplate = "concept_explanation"
	templateResearchQuestion taskTemplate = "research_question"
)

var (
	comparisonRe  = regexp.MustCompile(`(?i)compare\s+(the\s+)?(difference|similarities)?\s*between`)
	comparePairRe = regexp.MustCompile(`(?i)^compare\s+(.+)$`)
	explainRe     = regexp.MustCompile(`(?i)explain\s+(what|how|why)\s+(is|are|does)`)
	summarizeRe   = regexp.MustCompile(`(?i)summarize\s+(this|the|that|these)\s+(paper|article|publication|study)`)
	methodSplitRe = regexp.MustCompile(`(?i),|\band\b|\bvs\.?\b|\bversus\b`)
)

// Decompose converts a research query into an ordered task list.
func (d *TaskDecomposer) Decompose(ctx context.Context, query string) []Task {
	start := time.Now()
	d.LogStart(ctx, len(query))

	var tasks []Task
	if template, ok := detectTaskTemplate(query); ok {
		tasks = applyTaskTemplate(template, query)
	}
	if len(tasks) == 0 {
		tasks = d.generalDecomposition(ctx, query)
	}

	tasks = validateTasks(tasks)
	tasks = sortTasks(tasks)

	d.LogSuccess(ctx, map[string]interface{}{"task_count": len(tasks)}, time.Since(start))
	return tasks
}

// detectTaskTemplate checks whether the query matches a known phrasing.
func detectTaskTemplate(query string) (taskTemplate, bool) {
	lower := strings.ToLower(strings.TrimSpace(query))

	switch {
	case strings.HasPrefix(lower, "summarize the following paper"):
		return templatePaperSummary, true
	case strings.HasPrefix(lower, "compare these research methods"):
		return templateMethodComparison, true
	case strings.HasPrefix(lower, "explain this concept in simple terms"):
		return templateConceptExplain, true
	case strings.HasPrefix(lower, "generate a research question about"):
		return templateResearchQuestion, true
	}

	if comparisonRe.MatchString(lower) || comparePairRe.MatchString(lower) {
		return templateMethodComparison, true
	}
	if explainRe.MatchString(lower) {
		return templateConceptExplain, true
	}
	if summarizeRe.MatchString(lower) {
		return templatePaperSummary, true
	}

	return "", false
}

// applyTaskTemplate produces a fixed task skeleton parameterized by
// entities extracted from the query.
func applyTaskTemplate(template taskTemplate, query string) []Task {
	switch template {
	case templatePaperSummary:
		title := stripTemplatePrefix(query, "summarize the following paper:")
		return []Task{
			{ID: "task1", Operation: OpSearchPapers, Description: "Find paper: " + title, Dependencies: []string{}, Priority: 1},
			{ID: "task2", Operation: OpAnalyzePaper, Description: "Extract key components from paper", Dependencies: []string{"task1"}, Priority: 2},
			{ID: "task3", Operation: OpSynthesizeConcept, Description: "Create comprehensive paper summary", Dependencies: []string{"task2"}, Priority: 3},
		}

	case templateMethodComparison:
		methods := extractMethods(query)
		if len(methods) < 2 {
			return nil
		}
		tasks := make([]Task, 0, len(methods)+1)
		searchIDs := make([]string, 0, len(methods))
		for i, method := range methods {
			id := fmt.Sprintf("search%d", i+1)
			searchIDs = append(searchIDs, id)
			tasks = append(tasks, Task{
				ID:           id,
				Operation:    OpSearchPapers,
				Description:  "Find papers on " + method,
				Dependencies: []string{},
				Priority:     1,
			})
		}
		tasks = append(tasks, Task{
			ID:           "compare",
			Operation:    OpComparePapers,
			Description:  "Compare the research methods: " + strings.Join(methods, ", "),
			Dependencies: searchIDs,
			Priority:     2,
		})
		return tasks

	case templateConceptExplain:
		concept := stripTemplatePrefix(query, "explain this concept in simple terms:")
		return []Task{
			{ID: "task1", Operation: OpSearchPapers, Description: "Find papers about " + concept, Dependencies: []string{}, Priority: 1},
			{ID: "task2", Operation: OpSearchWeb, Description: "Find general information about " + concept, Dependencies: []string{}, Priority: 1},
			{ID: "task3", Operation: OpExplainConcept, Description: "Create simple explanation of " + concept, Dependencies: []string{"task1", "task2"}, Priority: 2},
		}

	case templateResearchQuestion:
		topic := stripTemplatePrefix(query, "generate a research question about:")
		return []Task{
			{ID: "task1", Operation: OpSearchPapers, Description: "Find recent papers about " + topic, Dependencies: []string{}, Priority: 1},
			{ID: "task2", Operation: OpSearchWeb, Description: "Find current developments in " + topic, Dependencies: []string{}, Priority: 1},
			{ID: "task3", Operation: OpAnalyzePaper, Description: "Identify research gaps in " + topic, Dependencies: []string{"task1", "task2"}, Priority: 2},
			{ID: "task4", Operation: OpGenerateQuestion, Description: "Generate novel research questions about " + topic, Dependencies: []string{"task3"}, Priority: 3},
		}
	}

	return nil
}

// stripTemplatePrefix removes the template phrasing, falling back to
// the whole query when the prefix is absent.
func stripTemplatePrefix(query, prefix string) string {
	lower := strings.ToLower(query)
	if idx := strings.Index(lower, prefix); idx >= 0 {
		return strings.TrimSpace(query[idx+len(prefix):])
	}
	return strings.TrimSpace(query)
}

// extractMethods splits a comma/"and"-separated method list out of a
// comparison query.
func extractMethods(query string) []string {
	text := strings.TrimSpace(query)
	lower := strings.ToLower(text)

	for _, prefix := range []string{"compare these research methods:", "compare"} {
		if idx := strings.Index(lower, prefix); idx >= 0 {
			text = strings.TrimSpace(text[idx+len(prefix):])
			break
		}
	}
	if cutIdx := comparisonRe.FindStringIndex(strings.ToLower(text)); cutIdx != nil {
		text = strings.TrimSpace(text[cutIdx[1]:])
	}

	parts := methodSplitRe.Split(text, -1)
	methods := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.Trim(p, ".?!"))
		if p != "" {
			methods = append(methods, p)
		}
	}
	return methods
}

const decompositionSystemPrompt = `Decompose the research task into atomic operations.

Return a JSON array of sub-tasks, where each has:
1. "id": a unique identifier (e.g., "task1")
2. "operation": one of [search_papers, search_web, analyze_paper, compare_papers, compare_research_methods, explain_concept, synthesize_concept, generate_question]
3. "description": specific details for this operation
4. "dependencies": list of other task ids this depends on
5. "priority": number 1-5 (1 highest)

Search tasks should be independent where possible; analysis and comparison tasks depend on the searches that feed them. Respond with valid JSON only.`

// generalDecomposition asks the model for a free-form decomposition
// constrained to the fixed operation vocabulary. Total failure degrades
// to a single search task covering the whole query.
func (d *TaskDecomposer) generalDecomposition(ctx context.Context, query string) []Task {
	raw := d.Complete(ctx, d.provider, []llm.Message{
		llm.SystemMessage(decompositionSystemPrompt),
		llm.UserMessage(query),
	}, llm.CompletionOptions{Temperature: 0.2, JSONOutput: true})

	var tasks []Task
	if err := decodeJSONList(raw, "tasks", &tasks); err != nil || len(tasks) == 0 {
		d.logger.WithFields(map[string]interface{}{
			"agent":          d.Name(),
			"correlation_id": getCorrelationID(ctx),
			"raw":            d.TruncateForLog(raw, 200),
		}).Warn("Failed to parse task decomposition, using single fallback task")
		return []Task{fallbackTask(query)}
	}
	return tasks
}

// fallbackTask is the minimal plan: the pipeline must always receive at
// least one task.
func fallbackTask(query string) Task {
	return Task{
		ID:           "task1",
		Operation:    OpSearchPapers,
		Description:  query,
		Dependencies: []string{},
		Priority:     1,
	}
}

// validateTasks fills missing fields, coerces unknown operations to
// search_papers, and drops dependencies that reference no task.
func validateTasks(tasks []Task) []Task {
	ids := make(map[string]bool, len(tasks))
	for i := range tasks {
		if tasks[i].ID == "" {
			tasks[i].ID = fmt.Sprintf("task%d", i+1)
		}
		ids[tasks[i].ID] = true
	}

	for i := range tasks {
		if !validOperations[tasks[i].Operation] {
			tasks[i].Operation = OpSearchPapers
		}
		if tasks[i].Description == "" {
			tasks[i].Description = "General research task"
		}
		if tasks[i].Priority == 0 {
			tasks[i].Priority = 1
		}

		kept := tasks[i].Dependencies[:0]
		for _, dep := range tasks[i].Dependencies {
			if dep != tasks[i].ID && ids[dep] {
				kept = append(kept, dep)
			}
		}
		if kept == nil {
			kept = []string{}
		}
		tasks[i].Dependencies = kept
	}
	return tasks
}

// sortTasks orders tasks so dependencies precede dependents. A DFS
// over the dependency graph first breaks cycles: a task seen twice on
// the current path has its dependency set cleared. The surviving DAG is
// then ordered by a stable priority sort followed by a feasibility
// pass, so equal-priority tasks keep their plan order.
func sortTasks(tasks []Task) []Task {
	n := len(tasks)
	if n < 2 {
		return tasks
	}

	indexByID := make(map[string]int, n)
	for i, t := range tasks {
		indexByID[t.ID] = i
	}

	visited := make([]bool, n)
	onPath := make([]bool, n)

	var visit func(int)
	visit = func(node int) {
		if onPath[node] {
			tasks[node].Dependencies = []string{}
			return
		}
		if visited[node] {
			return
		}
		onPath[node] = true
		for _, dep := range tasks[node].Dependencies {
			visit(indexByID[dep])
		}
		onPath[node] = false
		visited[node] = true
	}

	for i := 0; i < n; i++ {
		visit(i)
	}

	sorted := append([]Task(nil), tasks...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Priority < sorted[b].Priority
	})
	return ensureDependencyOrder(sorted)
}

// ensureDependencyOrder re-places any task that ended up ahead of one
// of its dependencies after the priority sort.
func ensureDependencyOrder(tasks []Task) []Task {
	placed := make(map[string]bool, len(tasks))
	result := make([]Task, 0, len(tasks))
	remaining := append([]Task(nil), tasks...)

	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0]
		for _, t := range remaining {
			ready := true
			for _, dep := range t.Dependencies {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				result = append(result, t)
				placed[t.ID] = true
				progressed = true
			} else {
				next = append(next, t)
			}
		}
		remaining = next
		if !progressed {
			// Unsatisfiable remainder; strip dependencies and emit.
			for i := range remaining {
				remaining[i].Dependencies = []string{}
				result = append(result, remaining[i])
			}
			break
		}
	}
	return result
}
