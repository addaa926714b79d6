package reinforce

import (
	"context"
	"sync"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// MemoryStore is an in-process Store, used by tests and by a
// single-replica deployment that doesn't need cross-pod durability.
type MemoryStore struct {
	mu     sync.Mutex
	active map[string]types.AdaptiveParams
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{active: map[string]types.AdaptiveParams{}}
}

func (s *MemoryStore) Load(_ context.Context, companyID, agentID, taskClassification string) (types.AdaptiveParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := policyKey(companyID, agentID, taskClassification)
	if params, ok := s.active[key]; ok {
		return copyParams(params), nil
	}
	return types.DefaultAdaptiveParams(companyID, agentID, taskClassification), nil
}

func (s *MemoryStore) Save(_ context.Context, params types.AdaptiveParams) (types.AdaptiveParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := policyKey(params.CompanyID, params.AgentID, params.TaskClassification)
	if prev, ok := s.active[key]; ok {
		params.Version = prev.Version + 1
	} else if params.Version < 1 {
		params.Version = 1
	}

	stored := copyParams(params)
	s.active[key] = stored
	return copyParams(stored), nil
}

func copyParams(p types.AdaptiveParams) types.AdaptiveParams {
	q := make(map[string]float64, len(p.ProviderQ))
	for k, v := range p.ProviderQ {
		q[k] = v
	}
	p.ProviderQ = q
	return p
}

// MemoryAuditLog is an in-process, append-only AuditLog.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewMemoryAuditLog builds an empty log.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

func (l *MemoryAuditLog) Append(_ context.Context, entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns a copy of the recorded entries, for tests/inspection.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
