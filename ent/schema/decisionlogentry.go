package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// DecisionLogEntry holds the schema definition for the append-only row
// written by the Orchestrator's post-task hook (spec §4.6 step 11), used to
// reconstruct OrgContext.ActiveDecisions. Grounded on the teacher's
// telemetry_events append-only convention: no update/delete exposed above
// the storage layer.
type DecisionLogEntry struct {
	ent.Schema
}

// Fields of the DecisionLogEntry.
func (DecisionLogEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.String("agent_id"),
		field.String("task_id"),
		field.Text("summary"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the DecisionLogEntry.
func (DecisionLogEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id", "agent_id", "created_at"),
	}
}
