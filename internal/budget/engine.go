// Package budget implements the Budget Engine: cost estimation from a static
// price table and a three-tier (task/session/hourly) spend ceiling check.
// The check ordering and short-circuit-on-first-failure behavior mirrors the
// BudgetChecker's position as the first stage of the policy pipeline in the
// agent-warden reference repo (other_examples).
package budget

import (
	"sync"
	"time"
)

// ModelPricing is a static per-million-token rate for one model.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultSessionCeiling and DefaultHourlyCap are the spec-mandated defaults,
// overridable at construction.
const (
	DefaultSessionCeiling = 50.0
	DefaultHourlyCap      = 20.0
)

// Engine tracks per-agent spend and enforces task/session/hourly ceilings.
type Engine struct {
	mu sync.RWMutex

	prices        map[string]ModelPricing
	cheapestModel string

	sessionCeiling float64
	hourlyCap      float64

	taskSpend    map[string]float64     // taskID -> dollars
	agentSpend   map[string][]spendPoint // agentID -> timestamped spend points (for hourly window)
	sessionTotal map[string]float64     // agentID -> running session total

	records []Record
}

// spendPoint is one timestamped cost event, used for the rolling-hour window.
type spendPoint struct {
	at     time.Time
	amount float64
}

// Record mirrors types.CostRecord but kept local to avoid an import cycle
// with the orchestrator; callers convert as needed.
type Record struct {
	TaskID       string
	AgentID      string
	Operation    string
	InputTokens  int
	OutputTokens int
	Dollars      float64
	Timestamp    time.Time
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithSessionCeiling overrides the default $50 session ceiling.
func WithSessionCeiling(dollars float64) Option { return func(e *Engine) { e.sessionCeiling = dollars } }

// WithHourlyCap overrides the default $20 rolling-hour cap.
func WithHourlyCap(dollars float64) Option { return func(e *Engine) { e.hourlyCap = dollars } }

// NewEngine builds a Budget Engine from a static price table. The cheapest
// entry (by input+output rate) is used as the fallback for unknown models.
func NewEngine(prices map[string]ModelPricing, opts ...Option) *Engine {
	e := &Engine{
		prices:         prices,
		sessionCeiling: DefaultSessionCeiling,
		hourlyCap:      DefaultHourlyCap,
		taskSpend:      map[string]float64{},
		agentSpend:     map[string][]spendPoint{},
		sessionTotal:   map[string]float64{},
	}
	e.cheapestModel = cheapest(prices)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func cheapest(prices map[string]ModelPricing) string {
	var best string
	bestRate := -1.0
	for name, p := range prices {
		rate := p.InputPerMillion + p.OutputPerMillion
		if bestRate < 0 || rate < bestRate {
			bestRate = rate
			best = name
		}
	}
	return best
}

// EstimateCost computes dollars for a model/token pair from the static price
// table; an unknown model falls back to the cheapest registered entry.
func (e *Engine) EstimateCost(model string, inputTokens, outputTokens int) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.prices[model]
	if !ok {
		p = e.prices[e.cheapestModel]
	}
	return float64(inputTokens)/1_000_000*p.InputPerMillion + float64(outputTokens)/1_000_000*p.OutputPerMillion
}

// CheckResult is the structured outcome of CheckBudget.
type CheckResult struct {
	Allowed          bool
	RemainingDollars float64
	Reason           string
}

// CheckBudget checks, in order: (1) task cap vs taskSpend+estimate, (2)
// session ceiling vs sessionSpend+estimate, (3) rolling-hour cap vs
// hourlySpend+estimate. The first failure short-circuits.
func (e *Engine) CheckBudget(taskID, agentID string, taskCap, estimate float64) CheckResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	taskSpent := e.taskSpend[taskID]
	if taskCap > 0 && taskSpent+estimate > taskCap {
		return CheckResult{Allowed: false, RemainingDollars: taskCap - taskSpent, Reason: "task budget exceeded"}
	}

	sessionSpent := e.sessionTotal[agentID]
	if sessionSpent+estimate > e.sessionCeiling {
		return CheckResult{Allowed: false, RemainingDollars: e.sessionCeiling - sessionSpent, Reason: "session ceiling exceeded"}
	}

	hourlySpent := e.hourlySpend(agentID, time.Now())
	if hourlySpent+estimate > e.hourlyCap {
		return CheckResult{Allowed: false, RemainingDollars: e.hourlyCap - hourlySpent, Reason: "rolling-hour cap exceeded"}
	}

	return CheckResult{Allowed: true, RemainingDollars: e.sessionCeiling - sessionSpent - estimate}
}

func (e *Engine) hourlySpend(agentID string, now time.Time) float64 {
	cutoff := now.Add(-1 * time.Hour)
	var total float64
	for _, pt := range e.agentSpend[agentID] {
		if pt.at.After(cutoff) {
			total += pt.amount
		}
	}
	return total
}

// RecordCost appends a cost record and updates the per-task, per-session, and
// rolling-hour aggregates.
func (e *Engine) RecordCost(r Record) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.records = append(e.records, r)
	e.taskSpend[r.TaskID] += r.Dollars
	e.sessionTotal[r.AgentID] += r.Dollars

	pts := append(e.agentSpend[r.AgentID], spendPoint{at: r.Timestamp, amount: r.Dollars})
	// Opportunistically trim points older than two hours (twice the hourly
	// window checked at spend time) so the slice doesn't grow unbounded
	// across a long-lived agent session.
	cutoff := r.Timestamp.Add(-2 * time.Hour)
	trimmed := pts[:0]
	for _, pt := range pts {
		if pt.at.After(cutoff) {
			trimmed = append(trimmed, pt)
		}
	}
	e.agentSpend[r.AgentID] = trimmed
}

// TaskSpend returns the running total recorded for taskID.
func (e *Engine) TaskSpend(taskID string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.taskSpend[taskID]
}

// SessionSpend returns the running session total for agentID.
func (e *Engine) SessionSpend(agentID string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessionTotal[agentID]
}

// RemainingBudget returns the session ceiling minus agentID's running
// session total, for display in the Orchestrator's OrgContext.RemainingBudget.
func (e *Engine) RemainingBudget(agentID string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessionCeiling - e.sessionTotal[agentID]
}

// TotalUsage sums tokens and dollars across every recorded cost, for the
// API layer's GET /api/status usage summary.
func (e *Engine) TotalUsage() (tokens int, dollars float64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.records {
		tokens += r.InputTokens + r.OutputTokens
		dollars += r.Dollars
	}
	return tokens, dollars
}
