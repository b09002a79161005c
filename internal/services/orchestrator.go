package services

import (
	"context"
	"time"

	"research-assistant/internal/agents"
	"research-assistant/internal/llm"
	"research-assistant/internal/logger"
)

// Orchestrator routes a user message to the right handler and, for
// research questions, drives the full plan-execute-synthesize pipeline.
type Orchestrator struct {
	classifier   *agents.IntentClassifier
	decomposer   *agents.TaskDecomposer
	academic     *agents.AcademicAgent
	web          *agents.WebSearchAgent
	analysis     *agents.AnalysisAgent
	synthesis    *agents.SynthesisAgent
	recommender  *agents.Recommender
	conversation *agents.ConversationAgent
	identity     *agents.IdentityAgent

	fallbackMinResults int
}

// NewOrchestrator wires the agent pipeline together.
func NewOrchestrator(
	classifier *agents.IntentClassifier,
	decomposer *agents.TaskDecomposer,
	academic *agents.AcademicAgent,
	web *agents.WebSearchAgent,
	analysis *agents.AnalysisAgent,
	synthesis *agents.SynthesisAgent,
	recommender *agents.Recommender,
	conversation *agents.ConversationAgent,
	identity *agents.IdentityAgent,
	fallbackMinResults int,
) *Orchestrator {
	return &Orchestrator{
		classifier:         classifier,
		decomposer:         decomposer,
		academic:           academic,
		web:                web,
		analysis:           analysis,
		synthesis:          synthesis,
		recommender:        recommender,
		conversation:       conversation,
		identity:           identity,
		fallbackMinResults: fallbackMinResults,
	}
}

const errorResponseMessage = "I'm sorry, something went wrong while researching your question. Please try again."

// Process handles one user message end to end. The returned metadata
// records the intent, the plan, the sources, and the final status.
func (o *Orchestrator) Process(ctx context.Context, message string, history []llm.Message) (string, map[string]interface{}) {
	start := time.Now()
	tracker := NewProgressTracker(researchPipelineSteps)

	tracker.Advance(StageAnalyzingIntent, "Classifying intent")
	intent := o.classifier.Classify(ctx, message, history)

	tracker.Advance(StageRouting, "Routing to "+string(intent.Handler))

	var response agents.HandlerResponse
	var pipelineErr error

	switch intent.Handler {
	case agents.HandlerConversation:
		tracker.SetTotalSteps(directHandlerSteps)
		response = o.conversation.Handle(ctx, message, intent, history)
		tracker.Advance(StageCompleted, "")
	case agents.HandlerIdentity:
		tracker.SetTotalSteps(directHandlerSteps)
		response = o.identity.Handle(ctx, message, intent)
		tracker.Advance(StageCompleted, "")
	default:
		response, pipelineErr = o.runResearchPipeline(ctx, message, intent, history, tracker)
	}

	metadata := map[string]interface{}{
		"intent_analysis":    intent,
		"processing_status":  tracker.Snapshot(),
		"success":            pipelineErr == nil,
		"task_decomposition": []agents.Task{},
		"sources":            []agents.Source{},
	}
	for k, v := range response.Metadata {
		metadata[k] = v
	}
	recs := response.Recommendations
	if recs == nil {
		recs = []agents.Recommendation{}
	}
	metadata["recommendations"] = recs
	if pipelineErr != nil {
		metadata["error"] = pipelineErr.Error()
		response.Response = errorResponseMessage
	}

	logger.Log.WithFields(map[string]interface{}{
		"handler":  intent.Handler,
		"duration": time.Since(start).String(),
		"success":  pipelineErr == nil,
	}).Info("Message processed")

	return response.Response, metadata
}

func (o *Orchestrator) runResearchPipeline(ctx context.Context, message string, intent agents.IntentRecord, history []llm.Message, tracker *ProgressTracker) (agents.HandlerResponse, error) {
	tracker.Advance(StageDecomposingTask, "Decomposing task")
	tasks := o.decomposer.Decompose(ctx, message)

	tracker.Advance(StageExecutingPlan, "Executing research plan")
	results := o.executePlan(ctx, tasks, intent)

	tracker.Advance(StageSynthesizing, "Synthesizing answer")
	output, err := o.synthesis.Synthesize(ctx, message, orderedResults(tasks, results), history)
	if err != nil {
		tracker.Fail(err.Error())
		return agents.HandlerResponse{}, err
	}

	tracker.Advance(StageRecommending, "Generating recommendations")
	recs := o.recommender.Generate(ctx, message, output.Response)

	sources := output.Sources
	if sources == nil {
		sources = []agents.Source{}
	}

	tracker.Advance(StageCompleted, "")
	return agents.HandlerResponse{
		Response:        output.Response,
		Recommendations: recs,
		Metadata: map[string]interface{}{
			"handler":            agents.HandlerResearch,
			"task_decomposition": tasks,
			"sources":            sources,
		},
	}, nil
}

type taskResult struct {
	taskID string
	result agents.RetrievalResult
}

// executePlan runs the plan batch by batch. Tasks inside one batch have
// no dependencies on each other and run concurrently; each batch joins
// before the next starts, so dependency inputs are always complete.
func (o *Orchestrator) executePlan(ctx context.Context, tasks []agents.Task, intent agents.IntentRecord) map[string]agents.RetrievalResult {
	results := make(map[string]agents.RetrievalResult, len(tasks))

	for _, batch := range batchTasks(tasks) {
		ch := make(chan taskResult, len(batch))
		for _, task := range batch {
			inputs := dependencyInputs(task, results)
			go func(t agents.Task) {
				ch <- taskResult{taskID: t.ID, result: o.executeTask(ctx, t, intent, inputs)}
			}(task)
		}
		for range batch {
			r := <-ch
			results[r.taskID] = r.result
		}
	}
	return results
}

// batchTasks groups an already dependency-ordered plan into concurrent
// batches. A task starts a new batch when it depends on a member of the
// current one.
func batchTasks(tasks []agents.Task) [][]agents.Task {
	var batches [][]agents.Task
	var current []agents.Task
	inCurrent := make(map[string]bool)

	for _, task := range tasks {
		conflict := false
		for _, dep := range task.Dependencies {
			if inCurrent[dep] {
				conflict = true
				break
			}
		}
		if conflict && len(current) > 0 {
			batches = append(batches, current)
			current = nil
			inCurrent = make(map[string]bool)
		}
		current = append(current, task)
		inCurrent[task.ID] = true
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func dependencyInputs(task agents.Task, results map[string]agents.RetrievalResult) []agents.RetrievalResult {
	inputs := make([]agents.RetrievalResult, 0, len(task.Dependencies))
	for _, dep := range task.Dependencies {
		if r, ok := results[dep]; ok && r.Kind != agents.KindError {
			inputs = append(inputs, r)
		}
	}
	return inputs
}

// executeTask dispatches one task to the agent that owns its operation.
// Academic searches that come back too thin are augmented with web
// results so downstream synthesis always has material.
func (o *Orchestrator) executeTask(ctx context.Context, task agents.Task, intent agents.IntentRecord, inputs []agents.RetrievalResult) agents.RetrievalResult {
	switch task.Operation {
	case agents.OpSearchPapers:
		result := o.academic.Execute(ctx, task, intent)
		if result.Kind == agents.KindError {
			web := o.web.Search(ctx, task.Description)
			web.UsedFallback = true
			return web
		}
		if result.Kind == agents.KindPapers && len(result.Papers) < o.fallbackMinResults {
			web := o.web.Search(ctx, result.Query)
			result.WebItems = append(result.WebItems, web.WebItems...)
			result.UsedFallback = true
		}
		return result
	case agents.OpSearchWeb:
		return o.web.Execute(ctx, task, intent)
	case agents.OpComparePapers, agents.OpCompareResearchMethods:
		return o.analysis.Compare(ctx, task, inputs)
	case agents.OpExplainConcept, agents.OpSynthesizeConcept:
		return o.analysis.Explain(ctx, task, inputs)
	case agents.OpGenerateQuestion:
		return o.analysis.GenerateQuestions(ctx, task, inputs)
	case agents.OpAnalyzePaper:
		return o.analysis.AnalyzePaper(ctx, task, inputs)
	default:
		return agents.ErrorResult(task.Description, "unknown operation: "+string(task.Operation))
	}
}

// orderedResults flattens the result map back into plan order.
func orderedResults(tasks []agents.Task, results map[string]agents.RetrievalResult) []agents.RetrievalResult {
	ordered := make([]agents.RetrievalResult, 0, len(results))
	for _, task := range tasks {
		if r, ok := results[task.ID]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered
}
