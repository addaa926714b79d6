package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tarsy-labs/agentruntime/internal/apperrors"
	"github.com/tarsy-labs/agentruntime/internal/approval"
	"github.com/tarsy-labs/agentruntime/internal/breaker"
	"github.com/tarsy-labs/agentruntime/internal/budget"
	"github.com/tarsy-labs/agentruntime/internal/policy"
	"github.com/tarsy-labs/agentruntime/internal/router"
	"github.com/tarsy-labs/agentruntime/internal/types"
)

// EventPublisher is the subset of *events.Publisher the pipeline depends
// on, declared here so tests can exercise the full pipeline without a live
// Postgres connection (the same point-of-use interface pattern as
// router.PolicyLens).
type EventPublisher interface {
	Publish(ctx context.Context, ev types.Event) error
}

// InterruptGuard is the subset of *interrupt.Store the pipeline depends on.
type InterruptGuard interface {
	GuardOrThrow(ctx context.Context, taskID string) error
}

// Pipeline runs the 11-step task pipeline spec §4.6 describes, wiring
// together every other component built in this runtime: the boot-locked
// Policy Engine, the Budget Engine, the Circuit Breaker, the LLM Router, the
// event Publisher, the Interrupt Store, and the Approval Gate.
type Pipeline struct {
	Policy     *policy.Engine
	Budget     *budget.Engine
	Breaker    *breaker.Breaker
	Router     *router.Router
	Events     EventPublisher
	Interrupts InterruptGuard
	Approval   *approval.Gate

	ActiveContext  ActiveContextStore
	KnowledgeGraph KnowledgeGraphStore
	OrgProfiles    OrgProfileStore
	DecisionLog    DecisionLogger
	Reinforcement  ReinforcementHook

	Log *slog.Logger
}

// NewPipeline wires the components above into a Pipeline. It defaults only
// Log (to slog.Default()); every other component, including KnowledgeGraph,
// DecisionLog, and Reinforcement, is supplied by the caller (for example
// NoopKnowledgeGraphStore, InMemoryDecisionLog, NoopReinforcementHook).
func NewPipeline(p Pipeline) *Pipeline {
	if p.Log == nil {
		p.Log = slog.Default()
	}
	return &p
}

// PipelineResult is what Run returns on a task that reached a terminal,
// non-erroring outcome.
type PipelineResult struct {
	Lensed   types.LensedResult
	Envelope types.TaskEnvelope
}

// Run executes the full task pipeline for one dispatched Job. The returned
// error's concrete type governs how the caller (the worker pool) classifies
// the failure for spec §4.6's failure-semantics logging: an
// *apperrors.InterruptedError is a user-initiated interrupt,
// *apperrors.BreakerTrippedError is a circuit_breaker_hard_trip, everything
// else is a plain task_failed.
func (p *Pipeline) Run(ctx context.Context, job Job) (PipelineResult, error) {
	log := p.Log.With("task_id", job.TaskID, "agent_id", job.AgentID)

	// Step 1: interrupt guard.
	if err := p.Interrupts.GuardOrThrow(ctx, job.TaskID); err != nil {
		return PipelineResult{}, err
	}

	// Step 2: envelope build.
	envelope, err := p.buildEnvelope(ctx, job)
	if err != nil {
		return PipelineResult{}, fmt.Errorf("building envelope: %w", err)
	}

	// Step 3: policy check.
	checkResult, err := p.Policy.CheckTask(&envelope)
	if err != nil {
		return PipelineResult{}, fmt.Errorf("policy check: %w", err)
	}
	if !checkResult.Allowed {
		if strings.HasPrefix(checkResult.Reason, "approval_required:") {
			reason := strings.TrimPrefix(checkResult.Reason, "approval_required:")
			if approved, err := p.requestApproval(ctx, job, strings.TrimSpace(reason)); err != nil {
				return PipelineResult{}, err
			} else if !approved {
				return PipelineResult{}, apperrors.NewBlocked("approval denied: " + reason)
			}
		} else {
			return PipelineResult{}, apperrors.NewBlocked(checkResult.Reason, checkResult.Violations...)
		}
	}

	// Step 4: budget check. The task's own pre-computed EstimatedDollars is
	// the estimate here; the actual model isn't selected until the router
	// call in step 8, so there is nothing yet to feed EstimateCost.
	estimate := job.Task.EstimatedDollars
	budgetResult := p.Budget.CheckBudget(job.TaskID, job.AgentID, job.Security.MaxSpendDollars, estimate)
	if !budgetResult.Allowed {
		return PipelineResult{}, fmt.Errorf("%w: %s", apperrors.ErrBudgetExceeded, budgetResult.Reason)
	}

	// Step 5: idempotency check.
	if cached, prior := p.Policy.CheckIdempotencyKey(job.TaskID); cached {
		if lensed, ok := prior.(types.LensedResult); ok {
			log.Info("idempotent hit, returning cached result")
			return PipelineResult{Lensed: lensed, Envelope: envelope}, nil
		}
	}

	// Step 6: circuit-breaker iteration check.
	messages := []types.TaggedMessage{
		{Role: types.RoleUser, Content: envelope.Task.SpecText, Source: types.SourceTask},
	}
	tripEvent, err := p.Breaker.BeforeIteration(job.TaskID, "", false)
	if err != nil {
		return PipelineResult{}, err
	}
	if tripEvent != nil {
		messages = append(messages, types.TaggedMessage{
			Role:    types.RoleSystem,
			Content: fmt.Sprintf("circuit breaker warning (%s): %s", tripEvent.Reason, tripEvent.Message),
			Source:  types.SourceSystem,
		})
	}

	// Step 7: interrupt guard before the expensive LLM call.
	if err := p.Interrupts.GuardOrThrow(ctx, job.TaskID); err != nil {
		return PipelineResult{}, err
	}

	// Step 8: router call.
	lensed, routeErr := p.Router.Route(ctx, "", messages, router.Options{
		MaxTokens:           4096,
		Temperature:         0.2,
		HardConstraintCount: len(envelope.Expert.HardConstraints),
	}, envelope.Task.SpecText)

	// Step 9: provider-call recording.
	if routeErr != nil {
		p.Breaker.RecordProviderCall(lensed.ProviderID, lensed.LatencyMS, false)
		return PipelineResult{}, fmt.Errorf("%w: %v", apperrors.ErrProviderFailure, routeErr)
	}
	p.Breaker.RecordProviderCall(lensed.ProviderID, lensed.LatencyMS, true)
	p.Budget.RecordCost(budget.Record{
		TaskID:       job.TaskID,
		AgentID:      job.AgentID,
		InputTokens:  lensed.InputTokens,
		OutputTokens: lensed.OutputTokens,
		Dollars:      lensed.DollarCost,
		Timestamp:    time.Now(),
	})

	// Step 10: lens result handling.
	if lensed.ConstraintViolation {
		log.Warn("constraint_violation", "violated", lensed.ViolatedConstraints)
		_ = p.Events.Publish(ctx, types.Event{
			Kind: types.EventError, TaskID: job.TaskID,
			Message: "constraint violation: " + strings.Join(lensed.ViolatedConstraints, ", "),
			Timestamp: time.Now(),
		})
		return PipelineResult{}, apperrors.NewBlocked("constraint violation: "+strings.Join(lensed.ViolatedConstraints, ", "),
			violationsFrom(lensed.ViolatedConstraints)...)
	}

	if lensed.Escalate {
		approved, err := p.requestApproval(ctx, job, "escalation trigger matched: "+strings.Join(lensed.TriggeredBy, ", "))
		if err != nil {
			return PipelineResult{}, err
		}
		if !approved {
			return PipelineResult{}, apperrors.NewBlocked("escalation rejected: " + strings.Join(lensed.TriggeredBy, ", "))
		}
	}

	p.Policy.RecordIdempotencyKey(job.TaskID, lensed)

	_ = p.Events.Publish(ctx, types.Event{
		Kind: types.EventStream, TaskID: job.TaskID, Chunk: lensed.Text, Timestamp: time.Now(),
	})
	_ = p.Events.Publish(ctx, types.Event{
		Kind: types.EventDone, TaskID: job.TaskID,
		Cost: lensed.DollarCost, Tokens: lensed.InputTokens + lensed.OutputTokens, Timestamp: time.Now(),
	})

	// Step 11: post-task hooks.
	p.runPostTaskHooks(ctx, job, envelope, lensed, true)

	return PipelineResult{Lensed: lensed, Envelope: envelope}, nil
}

// buildEnvelope assembles the TaskEnvelope for job: the locked expert
// judgment, the org's static profile and dynamic active-context snapshot,
// a capped knowledge-graph excerpt, and the task's in-flight registration
// (spec §4.6 step 2).
func (p *Pipeline) buildEnvelope(ctx context.Context, job Job) (types.TaskEnvelope, error) {
	constraints, err := p.Policy.Constraints()
	if err != nil {
		return types.TaskEnvelope{}, err
	}
	triggers, err := p.Policy.Triggers()
	if err != nil {
		return types.TaskEnvelope{}, err
	}
	confidenceMap, err := p.Policy.ConfidenceMap()
	if err != nil {
		return types.TaskEnvelope{}, err
	}

	profile, err := p.OrgProfiles.Get(ctx, job.CompanyID, job.AgentID)
	if err != nil {
		return types.TaskEnvelope{}, err
	}

	snapshot, err := p.ActiveContext.Get(ctx, job.CompanyID, job.AgentID)
	if err != nil {
		return types.TaskEnvelope{}, err
	}

	excerpt, err := p.KnowledgeGraph.Excerpt(ctx, job.CompanyID, job.AgentID, job.Task.SpecText, types.CapKGExcerpt)
	if err != nil {
		return types.TaskEnvelope{}, err
	}

	if err := p.ActiveContext.AddInFlight(ctx, job.CompanyID, job.AgentID, job.TaskID); err != nil {
		p.Log.Warn("failed to register in-flight task", "task_id", job.TaskID, "error", err)
	}

	return types.TaskEnvelope{
		TaskID:    job.TaskID,
		AgentID:   job.AgentID,
		CompanyID: job.CompanyID,
		Expert: types.ExpertJudgment{
			Patterns:           excerpt,
			EscalationTriggers: triggers,
			HardConstraints:    constraints,
			ConfidenceMap:      confidenceMap,
		},
		Org: types.OrgContext{
			Goal:             profile.Goal,
			ActiveDecisions:  snapshot.Decisions,
			KeyPeople:        profile.KeyPeople,
			RemainingBudget:  p.Budget.RemainingBudget(job.AgentID),
			Constraints:      profile.Constraints,
			ActiveContext:    &snapshot,
			OptimizationMode: profile.OptimizationMode,
		},
		Task:             job.Task,
		Security:         job.Security,
		OptimizationMode: profile.OptimizationMode,
	}, nil
}

// requestApproval blocks on the Approval Gate and reports whether the
// request was approved.
func (p *Pipeline) requestApproval(ctx context.Context, job Job, reason string) (bool, error) {
	_ = p.Events.Publish(ctx, types.Event{
		Kind: types.EventApprovalNeeded, TaskID: job.TaskID, Action: "review", Context: reason, Timestamp: time.Now(),
	})
	result, err := p.Approval.RequestApproval(ctx, job.TaskID, job.AgentID, reason)
	if err != nil {
		return false, fmt.Errorf("approval gate: %w", err)
	}
	return result.Approved, nil
}

// runPostTaskHooks appends the decision log entry, clears the in-flight
// registration, and fires the reinforcement measurement — all best-effort,
// none of which may fail the pipeline (spec §4.6 step 11).
func (p *Pipeline) runPostTaskHooks(ctx context.Context, job Job, envelope types.TaskEnvelope, lensed types.LensedResult, success bool) {
	entry := DecisionLogEntry{
		TaskID:    job.TaskID,
		AgentID:   job.AgentID,
		CompanyID: job.CompanyID,
		Summary:   summarizeDecision(lensed, success),
		Timestamp: time.Now(),
	}
	if err := p.DecisionLog.Append(ctx, entry); err != nil {
		p.Log.Warn("decision log append failed", "task_id", job.TaskID, "error", err)
	}

	if err := p.ActiveContext.RemoveInFlight(ctx, job.CompanyID, job.AgentID, job.TaskID); err != nil {
		p.Log.Warn("failed to clear in-flight task", "task_id", job.TaskID, "error", err)
	}

	outcome := PipelineOutcome{
		TaskID:             job.TaskID,
		AgentID:            job.AgentID,
		CompanyID:          job.CompanyID,
		ProviderID:         lensed.ProviderID,
		Success:            success,
		Escalated:          lensed.Escalate,
		ConstraintViolated: lensed.ConstraintViolation,
		Confidence:         lensed.Confidence,
		DollarCost:         lensed.DollarCost,
		LatencyMS:          lensed.LatencyMS,
	}
	go p.Reinforcement.Measure(context.WithoutCancel(ctx), outcome)
}

func summarizeDecision(lensed types.LensedResult, success bool) string {
	if !success {
		return "task did not complete"
	}
	if lensed.Escalate {
		return "completed after escalation review: " + strings.Join(lensed.TriggeredBy, ", ")
	}
	return "completed"
}

func violationsFrom(ids []string) []apperrors.PolicyViolation {
	out := make([]apperrors.PolicyViolation, len(ids))
	for i, id := range ids {
		out[i] = apperrors.PolicyViolation{ConstraintID: id}
	}
	return out
}
