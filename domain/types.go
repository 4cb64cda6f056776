// Package domain holds the core entities shared across every component of
// the pipeline: goals, ambiguities, research results, decisions, verdicts,
// atomizations, missions, build results, features, snapshots, interactions
// and events. Identifiers are opaque strings; timestamps are UTC instants.
package domain

import "time"

// Criticality ranks how blocking an Ambiguity is to forward progress.
type Criticality string

const (
	CriticalityBlocker Criticality = "Blocker"
	CriticalityHigh    Criticality = "High"
	CriticalityLow     Criticality = "Low"
)

// AmbiguityCategory classifies the kind of open question Parse produced.
type AmbiguityCategory string

const (
	CategoryInfrastructure AmbiguityCategory = "Infrastructure"
	CategoryLogic          AmbiguityCategory = "Logic"
	CategorySecurity       AmbiguityCategory = "Security"
	CategoryUX             AmbiguityCategory = "UX"
)

// Goal is the free-form text that kicks off a pipeline run.
type Goal struct {
	FeatureID string    `json:"feature_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Ambiguity is a question Parse decided must be resolved before code
// generation. InferredKnowns are resolved automatically against the
// codebase profile and removed from the open list (see Parse in agents).
type Ambiguity struct {
	ID          string            `json:"id"`
	Category    AmbiguityCategory `json:"category"`
	Question    string            `json:"question"`
	Criticality Criticality       `json:"criticality"`
	Context     string            `json:"context,omitempty"`
}

// ResearchOption is one candidate answer Research surfaced for an Ambiguity.
type ResearchOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Pros        string `json:"pros"`
	Cons        string `json:"cons"`
	Complexity  int    `json:"complexity"` // 1..10
}

// ResearchResult is produced by Research for exactly one Ambiguity.
type ResearchResult struct {
	UnknownID   string           `json:"unknown_id"`
	Options     []ResearchOption `json:"options"`
	Recommended string           `json:"recommended,omitempty"`
	Summary     string           `json:"summary"`
}

// SpecUpdateAction enumerates how a Decision wants to alter the project spec.
type SpecUpdateAction string

const (
	SpecUpdateAdd    SpecUpdateAction = "add"
	SpecUpdateModify SpecUpdateAction = "modify"
	SpecUpdateRemove SpecUpdateAction = "remove"
)

// SpecUpdate is one line item in a Decision's proposed spec changes.
type SpecUpdate struct {
	Section string           `json:"section"`
	Action  SpecUpdateAction `json:"action"`
}

// Decision is produced by Architect for one ResearchResult. It is mutable
// only via a new Decision — no in-place edits, per invariant 1.
type Decision struct {
	UnknownID           string       `json:"unknown_id"`
	ChosenOption        string       `json:"chosen_option"`
	Rationale           string       `json:"rationale"`
	SpecUpdates         []SpecUpdate `json:"spec_updates"`
	Dependencies        []string     `json:"dependencies"`
	SpecUpdatesApplied  bool         `json:"spec_updates_applied"`
}

// VerdictKind is the closed set of outcomes Critic can return.
type VerdictKind string

const (
	VerdictApproved     VerdictKind = "approved"
	VerdictNeedsChanges VerdictKind = "needs_changes"
	VerdictRejected     VerdictKind = "rejected"
)

// ConcernSeverity ranks a Critic concern.
type ConcernSeverity string

const (
	SeverityBlocking   ConcernSeverity = "blocking"
	SeverityMajor      ConcernSeverity = "major"
	SeverityMinor      ConcernSeverity = "minor"
	SeveritySuggestion ConcernSeverity = "suggestion"
)

// Concern is one issue Critic raised against a Decision.
type Concern struct {
	Severity    ConcernSeverity `json:"severity"`
	Description string          `json:"description"`
}

// Verdict is produced by Critic for one Decision.
type Verdict struct {
	UnknownID  string      `json:"unknown_id"`
	Verdict    VerdictKind `json:"verdict"`
	Confidence float64     `json:"confidence"` // advisory, [0,1]
	Concerns   []Concern   `json:"concerns"`
}

// Module is one file Atomizer planned within a feature.
type Module struct {
	Path           string `json:"path"`
	Responsibility string `json:"responsibility"`
	MaxLines       int    `json:"max_lines"`
}

// Atomization is produced by Atomizer once all Verdicts are terminal.
type Atomization struct {
	FeatureID        string   `json:"feature_id"`
	Modules          []Module `json:"modules"`
	TestModules      []string `json:"test_modules"`
	IntegrationPoints []string `json:"integration_points"`
}

// Task is one ordered unit of work within a Mission.
type Task struct {
	Number         int    `json:"number"`
	Action         string `json:"action"`
	FilePath       string `json:"file_path"`
	Implementation string `json:"implementation"`
	Hints          string `json:"hints,omitempty"`
}

// DraftingMission is one independent unit dispatched during the drafting
// scatter/gather phase.
type DraftingMission struct {
	FilePath string `json:"file_path"`
	Prompt   string `json:"prompt"`
}

// DraftingOutput is what a single Drafter call returns.
type DraftingOutput struct {
	FilePath   string `json:"file_path"`
	SourceCode string `json:"source_code"`
}

// Mission is handed to the Builder (and optionally to Drafters first).
type Mission struct {
	FeatureName        string            `json:"feature_name"`
	Objective          string            `json:"objective"`
	Tasks              []Task            `json:"tasks"`
	Constraints        string            `json:"constraints,omitempty"`
	DraftingMissions   []DraftingMission `json:"drafting_missions,omitempty"`
	ExistingSignatures string            `json:"existing_signatures,omitempty"`
	Verification       string            `json:"verification,omitempty"`
}

// FileChange is one file the Builder touched.
type FileChange struct {
	Path    string `json:"path"`
	Action  string `json:"action"` // created, modified, deleted
	LinesDelta int `json:"lines_delta"`
}

// BuildResult is produced by Builder.
type BuildResult struct {
	Success           bool               `json:"success"`
	Files             []FileChange       `json:"files"`
	BuildPassed       bool               `json:"build_passed"`
	TestsPassed       bool               `json:"tests_passed"`
	Iterations        int                `json:"iterations"`
	ErrorCount        int                `json:"error_count"`
	ConstraintReports []ConstraintReport `json:"constraint_reports,omitempty"`
}

// PipelineStage is a Feature's position in its lifecycle.
type PipelineStage string

const (
	StageIdea         PipelineStage = "Idea"
	StageParsing      PipelineStage = "Parsing"
	StageResearching  PipelineStage = "Researching"
	StageArchitecting PipelineStage = "Architecting"
	StageBuilding     PipelineStage = "Building"
	StageTesting      PipelineStage = "Testing"
	StageMerging      PipelineStage = "Merging"
	StageComplete     PipelineStage = "Complete"
	StageFailed       PipelineStage = "Failed"
)

// Mode governs approval-gate defaults and max_rejections for a Feature,
// grounded in original_source's CoordinatorConfig.mode field.
type Mode string

const (
	ModeSpeedRun Mode = "speed_run"
	ModeLab      Mode = "lab"
	ModeFortress Mode = "fortress"
)

// Feature is the unit the worker pool operates on.
type Feature struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Stage          PipelineStage `json:"stage"`
	Description    string        `json:"description,omitempty"`
	WorktreePath   string        `json:"worktree_path,omitempty"`
	Error          string        `json:"error,omitempty"`
	Mode           Mode          `json:"mode,omitempty"`
	RejectionCount int           `json:"rejection_count"`
	ParentID       string        `json:"parent_id,omitempty"`
	Tags           []string      `json:"tags,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Snapshot is an immutable checkpoint capture.
type Snapshot struct {
	ID             string          `json:"id"`
	Stage          string          `json:"stage"`
	Timestamp      time.Time       `json:"timestamp"`
	State          map[string]any  `json:"state"`
	Description    string          `json:"description,omitempty"`
	ParentID       string          `json:"parent_id,omitempty"`
	IsRollbackPoint bool           `json:"is_rollback_point"`
}

// InteractionKind is the closed set of reasons a coordinator can suspend.
type InteractionKind string

const (
	InteractionDecision InteractionKind = "Decision"
	InteractionInput    InteractionKind = "Input"
	InteractionAlert    InteractionKind = "Alert"
)

// InteractionStatus tracks whether a pending question has been answered.
type InteractionStatus string

const (
	InteractionPending   InteractionStatus = "Pending"
	InteractionResponded InteractionStatus = "Responded"
	InteractionIgnored   InteractionStatus = "Ignored"
)

// Interaction is a durable, pending human question.
type Interaction struct {
	ID          string            `json:"id"`
	ThreadID    string            `json:"thread_id"`
	Kind        InteractionKind   `json:"kind"`
	Status      InteractionStatus `json:"status"`
	FromAgent   string            `json:"from_agent"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Options     []string          `json:"options,omitempty"`
	Schema      string            `json:"schema,omitempty"`
	Response    string            `json:"response,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ResolvedAt  *time.Time        `json:"resolved_at,omitempty"`
}

// EventKind is the closed set of observable pipeline transitions (§4.2).
type EventKind string

const (
	EventPipelineStarted     EventKind = "PipelineStarted"
	EventAgentStarted        EventKind = "AgentStarted"
	EventAgentCompleted      EventKind = "AgentCompleted"
	EventAgentFailed         EventKind = "AgentFailed"
	EventDataPassed          EventKind = "DataPassed"
	EventCriticRejected      EventKind = "CriticRejected"
	EventPipelineCompleted   EventKind = "PipelineCompleted"
	EventPipelineFailed      EventKind = "PipelineFailed"
	EventResearchStarted     EventKind = "ResearchStarted"
	EventResearchProgress    EventKind = "ResearchProgress"
	EventResearchCompleted   EventKind = "ResearchCompleted"
	EventInteractionRequired EventKind = "InteractionRequired"
	EventInteractionResolved EventKind = "InteractionResolved"
	EventStateRestored       EventKind = "StateRestored"
	EventDraftingStarted     EventKind = "DraftingStarted"
	EventDraftingProgress    EventKind = "DraftingProgress"
	EventDraftingCompleted   EventKind = "DraftingCompleted"
)

// Event is a single append-only, observable transition (§6.3).
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Kind      EventKind      `json:"kind"`
	Agent     string         `json:"agent"`
	UnknownID string         `json:"unknown_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ConstraintSeverity ranks a ConstraintReport.
type ConstraintSeverity string

const (
	ConstraintBlocking   ConstraintSeverity = "blocking"
	ConstraintAdvisory   ConstraintSeverity = "advisory"
)

// ConstraintReport is one "Rule of 100" violation the constraint skill
// surfaced. actual/limit are always populated from real measurements
// (see SPEC_FULL.md §9, Open Question 1).
type ConstraintReport struct {
	Rule     string             `json:"rule"`
	File     string             `json:"file"`
	Actual   int                `json:"actual"`
	Limit    int                `json:"limit"`
	Severity ConstraintSeverity `json:"severity"`
}

// AgentProviderConfig pins a provider/model/system-prompt override to one
// adapter, grounded in the teacher's agents/provider.AgentProviderConfig.
type AgentProviderConfig struct {
	AgentType           string `json:"agent_type"`
	Provider            string `json:"provider"`
	Model               string `json:"model"`
	SystemPromptOverride string `json:"system_prompt_override,omitempty"`
}

// SwarmResult is the terminal output of one Coordinator.Run call.
type SwarmResult struct {
	Unknowns  []Ambiguity      `json:"unknowns"`
	Research  []ResearchResult `json:"research"`
	Decisions []Decision       `json:"decisions"`
	Verdicts  []Verdict        `json:"verdicts"`
	Events    []Event          `json:"events"`
	Success   bool             `json:"success"`
}
