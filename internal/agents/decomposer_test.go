package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskDecomposer_ComparisonTemplate(t *testing.T) {
	provider := &fakeProvider{}
	decomposer := NewTaskDecomposer(provider)

	tasks := decomposer.Decompose(context.Background(), "Compare BERT and GPT")

	require.Len(t, tasks, 3)
	assert.Equal(t, OpSearchPapers, tasks[0].Operation)
	assert.Equal(t, OpSearchPapers, tasks[1].Operation)
	assert.Contains(t, tasks[0].Description, "BERT")
	assert.Contains(t, tasks[1].Description, "GPT")

	compare := tasks[2]
	assert.Equal(t, OpComparePapers, compare.Operation)
	assert.ElementsMatch(t, []string{"search1", "search2"}, compare.Dependencies)

	// Templates never call the provider.
	assert.Equal(t, 0, provider.callCount())
}

func TestTaskDecomposer_ComparisonThreeMethods(t *testing.T) {
	decomposer := NewTaskDecomposer(&fakeProvider{})

	tasks := decomposer.Decompose(context.Background(), "Compare these research methods: CNNs, RNNs and transformers")

	require.Len(t, tasks, 4)
	assert.Len(t, tasks[3].Dependencies, 3)
}

func TestTaskDecomposer_ConceptTemplate(t *testing.T) {
	decomposer := NewTaskDecomposer(&fakeProvider{})

	tasks := decomposer.Decompose(context.Background(), "Explain this concept in simple terms: contrastive learning")

	require.Len(t, tasks, 3)
	assert.Equal(t, OpSearchPapers, tasks[0].Operation)
	assert.Equal(t, OpSearchWeb, tasks[1].Operation)
	assert.Equal(t, OpExplainConcept, tasks[2].Operation)
	assert.ElementsMatch(t, []string{"task1", "task2"}, tasks[2].Dependencies)
}

func TestTaskDecomposer_ResearchQuestionTemplate(t *testing.T) {
	decomposer := NewTaskDecomposer(&fakeProvider{})

	tasks := decomposer.Decompose(context.Background(), "Generate a research question about: federated learning privacy")

	require.Len(t, tasks, 4)
	// A gap-analysis step sits between retrieval and question generation.
	assert.Equal(t, OpAnalyzePaper, tasks[2].Operation)
	assert.Contains(t, tasks[2].Description, "research gaps")
	assert.ElementsMatch(t, []string{"task1", "task2"}, tasks[2].Dependencies)
	assert.Equal(t, OpGenerateQuestion, tasks[3].Operation)
	assert.Equal(t, []string{"task3"}, tasks[3].Dependencies)
}

func TestTaskDecomposer_GeneralDecomposition(t *testing.T) {
	provider := &fakeProvider{responses: []string{`[
		{"id": "a", "operation": "search_papers", "description": "find papers", "dependencies": [], "priority": 1},
		{"id": "b", "operation": "synthesize_concept", "description": "synthesize", "dependencies": ["a"], "priority": 2}
	]`}}
	decomposer := NewTaskDecomposer(provider)

	tasks := decomposer.Decompose(context.Background(), "Give me an overview of current battery chemistry research directions")

	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "b", tasks[1].ID)
}

func TestTaskDecomposer_UnknownOperationCoerced(t *testing.T) {
	provider := &fakeProvider{responses: []string{`[
		{"id": "a", "operation": "do_magic", "description": "something", "dependencies": [], "priority": 1}
	]`}}
	decomposer := NewTaskDecomposer(provider)

	tasks := decomposer.Decompose(context.Background(), "Research the history of speech recognition benchmarks for me")

	require.Len(t, tasks, 1)
	assert.Equal(t, OpSearchPapers, tasks[0].Operation)
}

func TestTaskDecomposer_DanglingDependencyDropped(t *testing.T) {
	provider := &fakeProvider{responses: []string{`[
		{"id": "a", "operation": "search_papers", "description": "find", "dependencies": ["ghost"], "priority": 1}
	]`}}
	decomposer := NewTaskDecomposer(provider)

	tasks := decomposer.Decompose(context.Background(), "Survey recent advances in program synthesis and summarize them clearly")

	require.Len(t, tasks, 1)
	assert.Empty(t, tasks[0].Dependencies)
}

func TestTaskDecomposer_CycleBroken(t *testing.T) {
	provider := &fakeProvider{responses: []string{`[
		{"id": "a", "operation": "search_papers", "description": "find", "dependencies": ["b"], "priority": 1},
		{"id": "b", "operation": "synthesize_concept", "description": "combine", "dependencies": ["a"], "priority": 2}
	]`}}
	decomposer := NewTaskDecomposer(provider)

	tasks := decomposer.Decompose(context.Background(), "Investigate and synthesize the state of the art in topic modeling")

	require.Len(t, tasks, 2)
	assertDependencyOrder(t, tasks)
}

func TestTaskDecomposer_FallbackSingleTask(t *testing.T) {
	provider := &fakeProvider{responses: []string{"not json"}}
	decomposer := NewTaskDecomposer(provider)

	tasks := decomposer.Decompose(context.Background(), "Tell me everything known about sparse mixture of experts models")

	require.Len(t, tasks, 1)
	assert.Equal(t, "task1", tasks[0].ID)
	assert.Equal(t, OpSearchPapers, tasks[0].Operation)
	assert.Equal(t, 1, tasks[0].Priority)
}

func TestTaskDecomposer_MissingFieldsFilled(t *testing.T) {
	provider := &fakeProvider{responses: []string{`[
		{"operation": "search_web"},
		{"operation": "search_papers"}
	]`}}
	decomposer := NewTaskDecomposer(provider)

	tasks := decomposer.Decompose(context.Background(), "Look into how different labs evaluate robotic manipulation systems")

	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.NotEmpty(t, task.ID)
		assert.NotEmpty(t, task.Description)
		assert.GreaterOrEqual(t, task.Priority, 1)
	}
}

// assertDependencyOrder verifies every dependency precedes its dependent.
func assertDependencyOrder(t *testing.T, tasks []Task) {
	t.Helper()
	position := make(map[string]int, len(tasks))
	for i, task := range tasks {
		position[task.ID] = i
	}
	for i, task := range tasks {
		for _, dep := range task.Dependencies {
			depPos, ok := position[dep]
			require.True(t, ok, "dependency %s of %s missing", dep, task.ID)
			assert.Less(t, depPos, i, "dependency %s must precede %s", dep, task.ID)
		}
	}
}
