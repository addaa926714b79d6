package orchestrator

import (
	"context"
	"sync"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// OrgProfile is the static, submission-time slice of OrgContext: the goal,
// key people, and constraint descriptions an agent was configured with,
// plus its optimization mode. Distinct from ActiveContextStore, which holds
// the dynamic working memory the pipeline reads and mutates per task, and
// from the per-task SecurityContext map, which expresses hard boundaries
// rather than descriptive context.
type OrgProfile struct {
	Goal             string
	KeyPeople        []string
	Constraints      []string
	OptimizationMode types.OptimizationMode
}

// OrgProfileStore supplies the OrgProfile for a (company, agent) pair.
type OrgProfileStore interface {
	Get(ctx context.Context, companyID, agentID string) (OrgProfile, error)
}

// StaticOrgProfileStore is a fixed, in-memory OrgProfileStore, good enough
// to exercise the pipeline ahead of an ent-backed `agents`/`companies` read
// path. Profiles are seeded at construction and may be added or replaced
// later through Set.
type StaticOrgProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]OrgProfile
}

// NewStaticOrgProfileStore builds a store pre-seeded with profiles, keyed by
// companyID+"/"+agentID.
func NewStaticOrgProfileStore(profiles map[string]OrgProfile) *StaticOrgProfileStore {
	if profiles == nil {
		profiles = map[string]OrgProfile{}
	}
	return &StaticOrgProfileStore{profiles: profiles}
}

func orgProfileKey(companyID, agentID string) string { return companyID + "/" + agentID }

// Set registers or replaces the profile for a (company, agent) pair.
func (s *StaticOrgProfileStore) Set(companyID, agentID string, profile OrgProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[orgProfileKey(companyID, agentID)] = profile
}

// Get returns the registered profile, or a zero-value OrgProfile with a
// balanced optimization mode if none was registered.
func (s *StaticOrgProfileStore) Get(_ context.Context, companyID, agentID string) (OrgProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[orgProfileKey(companyID, agentID)]; ok {
		return p, nil
	}
	return OrgProfile{OptimizationMode: types.OptimizationBalanced}, nil
}
