package services

import (
	"sync"
	"time"
)

// Processing steps, in pipeline order.
const (
	StageStarting        = "starting"
	StageAnalyzingIntent = "analyzing_intent"
	StageRouting         = "routing"
	StageDecomposingTask = "decomposing_task"
	StageExecutingPlan   = "executing_plan"
	StageSynthesizing    = "synthesizing_response"
	StageRecommending    = "generating_recommendations"
	StageCompleted       = "completed"
	StageError           = "error"
)

// Step counts per route, used to compute progress percent.
const (
	researchPipelineSteps = 7
	directHandlerSteps    = 3
)

// StepStatus records when a step was entered and what it was doing.
type StepStatus struct {
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ProcessingStatus is a snapshot of pipeline progress for one request.
type ProcessingStatus struct {
	CurrentStep     string                `json:"current_step"`
	StepsCompleted  []string              `json:"steps_completed"`
	StepsTotal      int                   `json:"steps_total"`
	DetailedStatus  map[string]StepStatus `json:"detailed_status"`
	ProgressPercent int                   `json:"progress_percent"`
}

// ProgressTracker records pipeline progress as an append-only step log.
// Updates come from the single orchestrating goroutine; reads may come
// from anywhere. Progress is advisory, for status display only.
type ProgressTracker struct {
	mu     sync.RWMutex
	status ProcessingStatus
}

// NewProgressTracker starts a fresh tracker for one request.
func NewProgressTracker(totalSteps int) *ProgressTracker {
	return &ProgressTracker{status: ProcessingStatus{
		CurrentStep:    StageStarting,
		StepsTotal:     totalSteps,
		DetailedStatus: make(map[string]StepStatus),
	}}
}

// SetTotalSteps adjusts the step count once routing picks a path.
func (p *ProgressTracker) SetTotalSteps(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.StepsTotal = total
}

// Advance enters a new step, appending it to the completed log and
// recomputing progress percent, capped at 100.
func (p *ProgressTracker) Advance(step, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.CurrentStep = step
	p.status.StepsCompleted = append(p.status.StepsCompleted, step)
	p.status.DetailedStatus[step] = StepStatus{Detail: detail, Timestamp: time.Now()}

	if p.status.StepsTotal > 0 {
		percent := len(p.status.StepsCompleted) * 100 / p.status.StepsTotal
		if percent > 100 {
			percent = 100
		}
		if percent > p.status.ProgressPercent {
			p.status.ProgressPercent = percent
		}
	}
	if step == StageCompleted {
		p.status.ProgressPercent = 100
	}
}

// Fail moves the tracker to the error step. The step log and percent
// stay as they were, so callers can see how far the request got.
func (p *ProgressTracker) Fail(detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.CurrentStep = StageError
	p.status.DetailedStatus[StageError] = StepStatus{Detail: detail, Timestamp: time.Now()}
}

// Snapshot returns a copy of the current status.
func (p *ProgressTracker) Snapshot() ProcessingStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := p.status
	snapshot.StepsCompleted = append([]string(nil), p.status.StepsCompleted...)
	snapshot.DetailedStatus = make(map[string]StepStatus, len(p.status.DetailedStatus))
	for step, st := range p.status.DetailedStatus {
		snapshot.DetailedStatus[step] = st
	}
	return snapshot
}
