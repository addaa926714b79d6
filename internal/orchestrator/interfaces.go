package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// ActiveContextStore is the persistent, capped per-(company,agent) working
// memory the envelope-build step reads and mutates (spec §4.6 step 2,
// §3 ActiveContextSnapshot). Declared here rather than depending on a
// concrete store; the `active_context` ent schema exists, but the only
// implementation in this module is InMemoryActiveContextStore.
type ActiveContextStore interface {
	Get(ctx context.Context, companyID, agentID string) (types.ActiveContextSnapshot, error)
	AddInFlight(ctx context.Context, companyID, agentID, taskID string) error
	RemoveInFlight(ctx context.Context, companyID, agentID, taskID string) error
}

// KnowledgeGraphStore supplies the capped knowledge-graph excerpt the
// envelope-build step attaches to OrgContext.
type KnowledgeGraphStore interface {
	Excerpt(ctx context.Context, companyID, agentID, query string, limit int) ([]string, error)
}

// DecisionLogEntry is one append-only row in the decision log (spec §4.6
// step 11, "append to the decision log").
type DecisionLogEntry struct {
	TaskID    string
	AgentID   string
	CompanyID string
	Summary   string
	Timestamp time.Time
}

// DecisionLogger records post-task decisions. Storage errors here are
// logged and swallowed (spec §5 propagation policy), never propagated to
// the pipeline's caller.
type DecisionLogger interface {
	Append(ctx context.Context, entry DecisionLogEntry) error
}

// PipelineOutcome is the summary handed to the reinforcement-loop
// measurement hook after a task completes or fails.
type PipelineOutcome struct {
	TaskID             string
	AgentID            string
	CompanyID          string
	TaskClassification string
	ProviderID         string
	Success            bool
	Escalated          bool
	ConstraintViolated bool
	Confidence         float64
	DollarCost         float64
	LatencyMS          int64
}

// ReinforcementHook fires the (non-blocking, never-thrown) reinforcement
// measurement named in spec §4.6 step 11 and §4.8.
type ReinforcementHook interface {
	Measure(ctx context.Context, outcome PipelineOutcome)
}

// NoopReinforcementHook discards every outcome. cmd/agentruntime wires a
// reinforce-backed hook instead; NewPipeline does not fill in this one.
type NoopReinforcementHook struct{}

func (NoopReinforcementHook) Measure(context.Context, PipelineOutcome) {}

// InMemoryActiveContextStore is a process-local ActiveContextStore, keyed
// by (companyID, agentID). Good enough to exercise the full pipeline ahead
// of the ent-backed `active_context` table.
type InMemoryActiveContextStore struct {
	mu   sync.Mutex
	data map[string]*types.ActiveContextSnapshot
}

// NewInMemoryActiveContextStore builds an empty store.
func NewInMemoryActiveContextStore() *InMemoryActiveContextStore {
	return &InMemoryActiveContextStore{data: map[string]*types.ActiveContextSnapshot{}}
}

func activeContextKey(companyID, agentID string) string { return companyID + "/" + agentID }

func (s *InMemoryActiveContextStore) Get(_ context.Context, companyID, agentID string) (types.ActiveContextSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := activeContextKey(companyID, agentID)
	snap, ok := s.data[key]
	if !ok {
		snap = &types.ActiveContextSnapshot{Version: 1}
		s.data[key] = snap
	}
	return *snap, nil
}

func (s *InMemoryActiveContextStore) AddInFlight(_ context.Context, companyID, agentID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := activeContextKey(companyID, agentID)
	snap, ok := s.data[key]
	if !ok {
		snap = &types.ActiveContextSnapshot{Version: 1}
		s.data[key] = snap
	}
	snap.InFlightTasks = append(snap.InFlightTasks, taskID)
	snap.Version++
	return nil
}

func (s *InMemoryActiveContextStore) RemoveInFlight(_ context.Context, companyID, agentID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := activeContextKey(companyID, agentID)
	snap, ok := s.data[key]
	if !ok {
		return nil
	}
	filtered := snap.InFlightTasks[:0]
	for _, id := range snap.InFlightTasks {
		if id != taskID {
			filtered = append(filtered, id)
		}
	}
	snap.InFlightTasks = filtered
	snap.Version++
	return nil
}

// NoopKnowledgeGraphStore returns no excerpts; used until internal/kg (or
// an ent-backed kg_nodes/kg_edges adapter) is wired in.
type NoopKnowledgeGraphStore struct{}

func (NoopKnowledgeGraphStore) Excerpt(context.Context, string, string, string, int) ([]string, error) {
	return nil, nil
}

// InMemoryDecisionLog is a process-local, append-only DecisionLogger.
type InMemoryDecisionLog struct {
	mu      sync.Mutex
	entries []DecisionLogEntry
}

// NewInMemoryDecisionLog builds an empty log.
func NewInMemoryDecisionLog() *InMemoryDecisionLog {
	return &InMemoryDecisionLog{}
}

func (l *InMemoryDecisionLog) Append(_ context.Context, entry DecisionLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns a copy of the recorded entries, for tests/inspection.
func (l *InMemoryDecisionLog) Entries() []DecisionLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]DecisionLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
