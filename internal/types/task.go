// Package types holds the data model shared by every component of the
// runtime core: TaskEnvelope, TaggedMessage, SanitizedInput, the frozen
// policy records, DAG node state, and the tagged-union Event stream.
package types

import (
	"fmt"
	"time"
)

// OptimizationMode selects the agent's risk/reward posture for a task.
type OptimizationMode string

const (
	OptimizationBalanced   OptimizationMode = "balanced"
	OptimizationSpeed      OptimizationMode = "speed"
	OptimizationThoroughness OptimizationMode = "thoroughness"
	OptimizationCost       OptimizationMode = "cost"
)

// ExpertJudgment is the locked, versioned policy bundle attached to every
// TaskEnvelope. It is never mutated after boot; envelopes carry a deep copy.
type ExpertJudgment struct {
	Patterns            []string
	EscalationTriggers   []Trigger
	HardConstraints      []Constraint
	ConfidenceMap        []ConfidenceRange
	Version              int
}

// OrgContext carries the company/agent's working memory for one task.
type OrgContext struct {
	Goal             string
	ActiveDecisions  []string // capped list
	KeyPeople        []string // capped list
	RemainingBudget  float64
	Constraints      []string
	ActiveContext    *ActiveContextSnapshot
	OptimizationMode OptimizationMode
}

// ActiveContextSnapshot is the persistent, capped per-company/agent memory
// referenced by the Orchestrator's envelope-build step.
type ActiveContextSnapshot struct {
	Decisions     []string // cap 15
	History       []string // cap 10
	OpenQuestions []string // cap 20
	Experiments   []string // cap 10
	KeyPeople     []string // cap 15
	InFlightTasks []string
	Version       int // optimistic concurrency token
}

// Caps applied to ActiveContextSnapshot fields, per spec.
const (
	CapDecisions     = 15
	CapHistory       = 10
	CapOpenQuestions = 20
	CapExperiments   = 10
	CapKeyPeople     = 15
	CapKGExcerpt     = 8
)

// AppendCapped appends value to list, trimming the oldest entries so the
// result never exceeds cap.
func AppendCapped(list []string, value string, cap int) []string {
	list = append(list, value)
	if len(list) > cap {
		list = list[len(list)-cap:]
	}
	return list
}

// TaskDefinition describes the unit of work to execute.
type TaskDefinition struct {
	SpecText            string
	AcceptanceCriteria  []string
	EstimatedTokens     int
	EstimatedDollars    float64
	DependencyIDs       []string
	OutcomeID           string // pointer to the recorded outcome, empty until set
}

// SecurityContext carries the boundaries a task may not exceed.
type SecurityContext struct {
	AllowedAdapterIDs  map[string]struct{}
	MaxSpendDollars    float64
	ApprovalRequired   bool
	ApprovalReason     string
}

// TaskEnvelope is the immutable unit of work dispatched to a worker. Once
// dispatched, no field may be mutated — Budget/Policy populate Security
// before dispatch only.
type TaskEnvelope struct {
	TaskID    string
	AgentID   string
	CompanyID string
	SeatID    string // optional, empty if none
	ExpertID  string // optional, empty if none

	Expert  ExpertJudgment
	Org     OrgContext
	Task    TaskDefinition
	Security SecurityContext

	OptimizationMode OptimizationMode
	dispatched       bool
}

// MarkDispatched freezes the envelope. Subsequent calls are no-ops; callers
// must treat the envelope as read-only from this point.
func (e *TaskEnvelope) MarkDispatched() { e.dispatched = true }

// IsDispatched reports whether the envelope has been handed to a worker.
func (e *TaskEnvelope) IsDispatched() bool { return e.dispatched }

// MessageRole is the role of a TaggedMessage.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessageSource identifies who originated a TaggedMessage's content.
type MessageSource string

const (
	SourceSystem   MessageSource = "system"
	SourceFounder  MessageSource = "founder"
	SourceTask     MessageSource = "task"
	SourceExternal MessageSource = "external"
)

// TaggedMessage is the {role, content, source} triple threaded through every
// LLM call. Messages tagged SourceExternal must never be interpreted as
// commands by the router or provider-facing prompt assembly.
type TaggedMessage struct {
	Role    MessageRole
	Content string
	Source  MessageSource
}

// SanitizedInput wraps content crossing into an LLM prompt from outside the
// process. Created only by the Policy Engine's sanitization boundary.
type SanitizedInput struct {
	Content             string // delimited by BEGIN/END markers, raw bytes preserved verbatim inside
	SourceType          string
	SanitizedAt         time.Time
	HadSuspiciousPatterns bool
	PatternDetails      []string
}

const (
	sanitizedBeginFormat = "=== BEGIN EXTERNAL DATA (%s) ==="
	sanitizedEndMarker   = "=== END EXTERNAL DATA ==="
)

// WrapSanitized delimits raw external content with explicit BEGIN/END
// markers. The raw bytes are never modified — callers rely on this for the
// round-trip invariant in spec §8.
func WrapSanitized(raw, sourceType string) string {
	begin := fmt.Sprintf(sanitizedBeginFormat, sourceType)
	return begin + "\n" + raw + "\n" + sanitizedEndMarker
}
