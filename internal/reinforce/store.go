package reinforce

import (
	"context"
	"time"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// Store is the versioned parameter-store persistence boundary. The
// `adaptive_policy_store` table has an ent schema (a unique partial index on
// (company_id, agent_id, task_classification) WHERE active, the same
// partial-index idiom the teacher uses for soft deletes), but no ent-backed
// Store exists; the process and the tests use the in-memory MemoryStore in
// this package.
//
// Save must deactivate whatever row was previously active for the key and
// insert a new one with a monotonically increasing version (spec §4.8
// "read-deactivate-insert"); Load returns DefaultAdaptiveParams when no
// active row exists for the key.
type Store interface {
	Load(ctx context.Context, companyID, agentID, taskClassification string) (types.AdaptiveParams, error)
	Save(ctx context.Context, params types.AdaptiveParams) (types.AdaptiveParams, error)
}

// AuditEntry is one append-only row in the reinforcement audit log (spec
// §4.8 "every update, including frozen no-ops").
type AuditEntry struct {
	CompanyID          string
	AgentID            string
	TaskClassification string
	Reward             RewardComponents
	RewardTotal        float64
	ParamsBefore       types.AdaptiveParams
	ParamsAfter        types.AdaptiveParams
	Alpha              float64
	Frozen             bool
	FreezeReason       string
	Timestamp          time.Time
}

// AuditLog is the append-only audit trail. Grounded on the teacher's
// telemetry_events table convention: no update/delete exposed above the
// storage layer.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}

func policyKey(companyID, agentID, taskClassification string) string {
	return companyID + "/" + agentID + "/" + taskClassification
}
