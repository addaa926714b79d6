package reinforce

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// guardState is the per-(company, agent, task-classification) ephemeral
// bookkeeping the volatility-freeze and α-decay guardrails need: a rolling
// reward history and a consecutive-negative-outcome streak. Kept
// process-local rather than persisted, the same way the Circuit Breaker's
// per-task/per-provider maps are process-local state distinct from its
// durable records — only the resulting params (and the audit trail) are
// durable.
type guardState struct {
	rewardHistory   []float64
	negativeStreak  int
}

// UpdateInput is one task outcome's reinforcement signal.
type UpdateInput struct {
	CompanyID          string
	AgentID            string
	TaskClassification string
	ProviderID         string
	Reward             RewardComponents
}

// Engine applies the Q-update and its non-bypassable guardrails to the
// versioned parameter store on every task outcome (spec §4.8).
type Engine struct {
	mu     sync.Mutex
	guards map[string]*guardState

	store Store
	audit AuditLog
	log   *slog.Logger
}

// New constructs an Engine.
func New(store Store, audit AuditLog, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		guards: map[string]*guardState{},
		store:  store,
		audit:  audit,
		log:    log.With("component", "reinforcement_loop"),
	}
}

// Update loads the current parameter bundle for the key, computes the
// reward total, evaluates the volatility-freeze and α-decay guardrails,
// applies the bounded Q-update (skipped entirely when frozen), saves the
// new versioned row, and appends an audit entry — even when the update was
// a frozen no-op (spec §4.8 "every update, including frozen no-ops").
// Errors are returned to the caller, but the pipeline's post-task hook
// treats them as non-blocking and never aborts a task on one (spec §5).
func (e *Engine) Update(ctx context.Context, in UpdateInput) (types.AdaptiveParams, error) {
	params, err := e.store.Load(ctx, in.CompanyID, in.AgentID, in.TaskClassification)
	if err != nil {
		return types.AdaptiveParams{}, fmt.Errorf("reinforce: load params: %w", err)
	}
	before := copyParams(params)

	reward := in.Reward.Total()
	key := policyKey(in.CompanyID, in.AgentID, in.TaskClassification)

	e.mu.Lock()
	state, ok := e.guards[key]
	if !ok {
		state = &guardState{}
		e.guards[key] = state
	}
	state.rewardHistory = append(state.rewardHistory, reward)
	if len(state.rewardHistory) > volatilityWindow {
		state.rewardHistory = state.rewardHistory[len(state.rewardHistory)-volatilityWindow:]
	}

	frozen := params.Frozen
	freezeReason := ""
	if !frozen {
		if v, enough := variance(state.rewardHistory); enough && v > volatilityVarianceThreshold {
			frozen = true
			freezeReason = fmt.Sprintf("volatility freeze: variance %.3f over %d samples exceeds %.2f", v, len(state.rewardHistory), volatilityVarianceThreshold)
		}
	} else {
		freezeReason = "key already frozen by volatility freeze; update skipped"
	}

	if in.Reward.OutcomeDelta < 0 {
		state.negativeStreak++
	} else {
		state.negativeStreak = 0
	}
	alpha := params.Alpha
	if state.negativeStreak >= alphaDecayStreak {
		alpha = decayedAlpha(alpha)
		state.negativeStreak = 0
	}
	e.mu.Unlock()

	if !frozen {
		if params.ProviderQ == nil {
			params.ProviderQ = map[string]float64{}
		}
		params.ProviderQ[in.ProviderID] = updateParam(params.ProviderQ[in.ProviderID], reward, alpha, ProviderQMin, ProviderQMax)
		params.EscalationDelta = updateParam(params.EscalationDelta, reward, alpha, EscalationDeltaMin, EscalationDeltaMax)
		params.BudgetMultiplier = updateParam(params.BudgetMultiplier, in.Reward.CostEfficiency, alpha, BudgetMultiplierMin, BudgetMultiplierMax)
		params.Alpha = alpha
		params.UpdateCount++
	}
	params.Frozen = frozen

	saved, err := e.store.Save(ctx, params)
	if err != nil {
		return types.AdaptiveParams{}, fmt.Errorf("reinforce: save params: %w", err)
	}

	entry := AuditEntry{
		CompanyID:          in.CompanyID,
		AgentID:            in.AgentID,
		TaskClassification: in.TaskClassification,
		Reward:             in.Reward,
		RewardTotal:        reward,
		ParamsBefore:       before,
		ParamsAfter:        copyParams(saved),
		Alpha:              alpha,
		Frozen:             frozen,
		FreezeReason:       freezeReason,
		Timestamp:          time.Now(),
	}
	if err := e.audit.Append(ctx, entry); err != nil {
		e.log.Error("failed to append reinforcement audit entry", "company_id", in.CompanyID, "agent_id", in.AgentID, "error", err)
	}

	return saved, nil
}
