package agents

import (
	"time"
)

// Handler identifies the routing target for a classified message.
type Handler string

const (
	HandlerConversation Handler = "conversation"
	HandlerIdentity     Handler = "identity"
	HandlerResearch     Handler = "research"
)

// IntentRecord is the result of classifying one user message. It is
// produced once per incoming message and consumed read-only by the
// router and every downstream agent for query framing.
type IntentRecord struct {
	PrimaryIntent    string   `json:"primary_intent"`
	Entities         []string `json:"entities"`
	InfoType         string   `json:"info_type,omitempty"`
	TimeFrame        string   `json:"time_frame,omitempty"` // any, past_week, past_month, past_year
	ResearchAreas    []string `json:"research_areas,omitempty"`
	IsConversational bool     `json:"is_conversational"`
	ConversationType string   `json:"conversation_type,omitempty"` // greeting, capabilities, clarification, follow_up
	QuestionType     string   `json:"question_type,omitempty"`     // identity: name, nature, general
	RequiresSearch   bool     `json:"requires_search"`
	RequiresPlanning bool     `json:"requires_planning"`
	Handler          Handler  `json:"handler"`
	ConceptToExplain string   `json:"concept_to_explain,omitempty"`
}

// Operation is the type of work a single task performs.
type Operation string

const (
	OpSearchPapers           Operation = "search_papers"
	OpSearchWeb              Operation = "search_web"
	OpAnalyzePaper           Operation = "analyze_paper"
	OpComparePapers          Operation = "compare_papers"
	OpCompareResearchMethods Operation = "compare_research_methods"
	OpExplainConcept         Operation = "explain_concept"
	OpSynthesizeConcept      Operation = "synthesize_concept"
	OpGenerateQuestion       Operation = "generate_question"
)

// validOperations is the fixed vocabulary the decomposer accepts.
// Anything else is coerced to search_papers.
var validOperations = map[Operation]bool{
	OpSearchPapers:           true,
	OpSearchWeb:              true,
	OpAnalyzePaper:           true,
	OpComparePapers:          true,
	OpCompareResearchMethods: true,
	OpExplainConcept:         true,
	OpSynthesizeConcept:      true,
	OpGenerateQuestion:       true,
}

// Task is one atomic unit of retrieval or analysis work. Tasks form a
// DAG; nodes are immutable once scheduled and are mutated only to strip
// invalid or cyclic dependencies.
type Task struct {
	ID           string    `json:"id"`
	Operation    Operation `json:"operation"`
	Description  string    `json:"description"`
	Dependencies []string  `json:"dependencies"`
	Priority     int       `json:"priority"`
}

// RelevanceAssessment is attached to a document post-hoc by the
// LLM-based relevance scorer. Its absence must not break sorting.
type RelevanceAssessment struct {
	Score       float64  `json:"score"`
	Reason      string   `json:"reason"`
	KeyInsights []string `json:"key_insights,omitempty"`
}

// Paper is a normalized academic document.
type Paper struct {
	ArxivID       string               `json:"arxiv_id,omitempty"`
	Title         string               `json:"title"`
	Authors       []string             `json:"authors,omitempty"`
	Abstract      string               `json:"abstract"`
	PublishedDate time.Time            `json:"published_date,omitempty"`
	Link          string               `json:"link"`
	PDFLink       string               `json:"pdf_link,omitempty"`
	Categories    []string             `json:"categories,omitempty"`
	Summary       string               `json:"summary,omitempty"`
	Relevance     *RelevanceAssessment `json:"relevance_assessment,omitempty"`
}

// WebItem is a normalized web search result.
type WebItem struct {
	Title     string               `json:"title"`
	URL       string               `json:"url"`
	Content   string               `json:"content"`
	Score     float64              `json:"score,omitempty"`
	Relevance *RelevanceAssessment `json:"relevance_assessment,omitempty"`
}

// ResultKind discriminates the RetrievalResult variants so consumers
// pattern-match instead of probing for key presence.
type ResultKind string

const (
	KindPapers      ResultKind = "papers"
	KindWebItems    ResultKind = "web_items"
	KindComparison  ResultKind = "comparison"
	KindExplanation ResultKind = "explanation"
	KindError       ResultKind = "error"
)

// RetrievalResult is the output of one executed task, keyed by task id
// in the executor's result map. Never mutated after creation except to
// append fallback items and set UsedFallback.
type RetrievalResult struct {
	Kind         ResultKind   `json:"kind"`
	Query        string       `json:"query,omitempty"`
	Source       string       `json:"source,omitempty"` // arxiv, tavily, simulated
	Papers       []Paper      `json:"papers,omitempty"`
	WebItems     []WebItem    `json:"results,omitempty"`
	Comparison   *Comparison  `json:"comparison,omitempty"`
	Explanation  *Explanation `json:"explanation,omitempty"`
	Err          string       `json:"error,omitempty"`
	UsedFallback bool         `json:"used_fallback,omitempty"`
}

// ErrorResult builds the uniform error-signaling result for retrieval
// failures, which never abort sibling tasks.
func ErrorResult(query, msg string) RetrievalResult {
	return RetrievalResult{Kind: KindError, Query: query, Err: msg}
}

// Comparison is the structured output of comparing papers or methods.
type Comparison struct {
	Summary         string            `json:"comparison_summary"`
	Table           map[string]string `json:"comparison_table,omitempty"`
	KeyDifferences  []string          `json:"key_differences,omitempty"`
	Synthesis       string            `json:"synthesis,omitempty"`
	Recommendations string            `json:"recommendations,omitempty"`
}

// Explanation is the structured output of explaining a concept or
// generating research questions.
type Explanation struct {
	Concept             string   `json:"concept"`
	SimpleDefinition    string   `json:"simple_definition"`
	DetailedExplanation string   `json:"detailed_explanation"`
	RealWorldExamples   []string `json:"real_world_examples,omitempty"`
	RelatedConcepts     []string `json:"related_concepts,omitempty"`
	ResearchQuestions   []string `json:"research_questions,omitempty"`
}

// SourceType classifies a citation source for display.
type SourceType string

const (
	SourceAcademic    SourceType = "academic"
	SourceAcademicPDF SourceType = "academic_pdf"
	SourceWeb         SourceType = "web"
)

// Source is a flattened citation record derived from retrieval items at
// synthesis time.
type Source struct {
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	Type      SourceType `json:"type"`
	Relevance float64    `json:"relevance"`
}

// Recommendation is one follow-up suggestion surfaced alongside every
// response.
type Recommendation struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Type           string  `json:"type"` // paper, topic, concept, technology, resource, research_area
	RelevanceScore float64 `json:"relevance_score"`
}

// HandlerResponse is the output of the conversational and identity
// handlers.
type HandlerResponse struct {
	Response        string                 `json:"response"`
	Recommendations []Recommendation       `json:"recommendations,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}
