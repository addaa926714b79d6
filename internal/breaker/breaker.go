// Package breaker implements the Circuit Breaker: per-task iteration/
// duplicate/no-progress trips and per-provider rolling-window health. The
// per-task IterationState bookkeeping is grounded on tarsy's
// pkg/agent/controller IterationState idiom (CurrentIteration, failure
// streaks tracked per execution); provider health is grounded on
// pkg/mcp/health.go's rolling call-record window generalized from MCP
// servers to LLM providers.
package breaker

import (
	"sync"
	"time"

	"github.com/tarsy-labs/agentruntime/internal/apperrors"
	"github.com/tarsy-labs/agentruntime/internal/types"
)

// Defaults per spec §4.3.
const (
	DefaultMaxIterations     = 25
	DefaultMaxNoProgress     = 5
	DefaultDuplicateWindow   = 5
	DefaultDuplicateThreshold = 0.85
	DefaultSoftWarningRatio  = 0.8
	DefaultHealthWindow      = 60 * time.Second
	DefaultRecoveryDelay     = 30 * time.Second
	DefaultMinHealthSamples  = 5
	DefaultErrorRateTrip     = 0.5
	DefaultP99LatencyTripMS  = 30_000
)

// Config bundles the tunables the breaker is constructed with.
type Config struct {
	MaxIterations      int
	MaxNoProgress      int
	DuplicateWindow    int
	DuplicateThreshold float64
	SoftWarningRatio   float64
	HealthWindow       time.Duration
	RecoveryDelay      time.Duration
	MinHealthSamples   int
	ErrorRateTrip      float64
	P99LatencyTripMS   int64
	Detector           DuplicateDetector
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:      DefaultMaxIterations,
		MaxNoProgress:      DefaultMaxNoProgress,
		DuplicateWindow:    DefaultDuplicateWindow,
		DuplicateThreshold: DefaultDuplicateThreshold,
		SoftWarningRatio:   DefaultSoftWarningRatio,
		HealthWindow:       DefaultHealthWindow,
		RecoveryDelay:      DefaultRecoveryDelay,
		MinHealthSamples:   DefaultMinHealthSamples,
		ErrorRateTrip:      DefaultErrorRateTrip,
		P99LatencyTripMS:   DefaultP99LatencyTripMS,
		Detector:           JaccardDetector{},
	}
}

// Breaker holds all per-task and per-provider state. Mutated only by the
// pipeline worker; Breaker takes its own lock, so a single instance is safe
// to share across a worker pool with concurrency > 1 without external
// guarding.
type Breaker struct {
	cfg Config

	mu    sync.Mutex
	tasks map[string]*types.IterationState

	providers map[string]*types.ProviderState
}

// New constructs a Breaker with the given config.
func New(cfg Config) *Breaker {
	if cfg.Detector == nil {
		cfg.Detector = JaccardDetector{}
	}
	return &Breaker{
		cfg:       cfg,
		tasks:     map[string]*types.IterationState{},
		providers: map[string]*types.ProviderState{},
	}
}

func (b *Breaker) stateFor(taskID string) *types.IterationState {
	st, ok := b.tasks[taskID]
	if !ok {
		st = &types.IterationState{StartedAt: time.Now()}
		b.tasks[taskID] = st
	}
	return st
}

// BeforeIteration is called once per LLM iteration. It updates the iteration
// counter, checks the hard/soft trip conditions in priority order, and
// returns the soft TripEvent (if any, non-nil) or an error wrapping
// ErrCircuitBreakerTripped for a hard trip.
func (b *Breaker) BeforeIteration(taskID, lastOutput string, hadToolCall bool) (*types.TripEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.stateFor(taskID)
	st.Count++
	st.LastOutputAt = time.Now()

	if hadToolCall {
		st.NoProgressStreak = 0
	} else {
		st.NoProgressStreak++
	}

	// Hard iteration cap.
	if st.Count >= b.cfg.MaxIterations {
		return b.trip(st, taskID, "max_iterations", true, "hard iteration cap reached")
	}

	// Hard no-progress trip.
	if st.NoProgressStreak >= b.cfg.MaxNoProgress {
		return b.trip(st, taskID, "no_progress", true, "no-progress streak reached cap")
	}

	// Near-duplicate detection: compare against the ring BEFORE inserting the
	// candidate (spec invariant — no self-match), then push.
	if lastOutput != "" {
		if sim, dup := b.cfg.Detector.IsDuplicate(lastOutput, st.RecentOutputs, b.cfg.DuplicateThreshold); dup {
			_ = sim
			return b.trip(st, taskID, "duplicate_output", true, "near-duplicate output detected")
		}
		st.RecentOutputs = pushRing(st.RecentOutputs, lastOutput, b.cfg.DuplicateWindow)
	}

	// Soft warning at SoftWarningRatio of the iteration cap.
	if float64(st.Count) >= b.cfg.SoftWarningRatio*float64(b.cfg.MaxIterations) {
		return b.softEvent(taskID, st, "max_iterations_soft", "approaching iteration cap"), nil
	}

	// Soft warning one step before the no-progress trip.
	if st.NoProgressStreak == b.cfg.MaxNoProgress-1 {
		return b.softEvent(taskID, st, "no_progress_soft", "one step from no-progress trip"), nil
	}

	return nil, nil
}

func (b *Breaker) trip(st *types.IterationState, taskID, reason string, hard bool, message string) (*types.TripEvent, error) {
	ev := types.TripEvent{
		TaskID:    taskID,
		Reason:    reason,
		Severity:  string(apperrors.SeverityHard),
		Iteration: st.Count,
		Message:   message,
		Timestamp: time.Now(),
	}
	st.Tripped = true
	st.TripEvents = append(st.TripEvents, ev)
	return nil, &apperrors.BreakerTrippedError{TaskID: taskID, Reason: reason + "/hard", Severity: apperrors.SeverityHard, Iteration: st.Count}
}

func (b *Breaker) softEvent(taskID string, st *types.IterationState, reason, message string) *types.TripEvent {
	ev := types.TripEvent{
		TaskID:    taskID,
		Reason:    reason,
		Severity:  string(apperrors.SeveritySoft),
		Iteration: st.Count,
		Message:   message,
		Timestamp: time.Now(),
	}
	st.TripEvents = append(st.TripEvents, ev)
	return &ev
}

func pushRing(ring []string, value string, capacity int) []string {
	ring = append(ring, value)
	if len(ring) > capacity {
		ring = ring[len(ring)-capacity:]
	}
	return ring
}

// IterationCount returns the current iteration count for taskID (0 if unseen).
func (b *Breaker) IterationCount(taskID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.tasks[taskID]; ok {
		return st.Count
	}
	return 0
}

// ReleaseTask destroys the IterationState for a completed task.
func (b *Breaker) ReleaseTask(taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tasks, taskID)
}
