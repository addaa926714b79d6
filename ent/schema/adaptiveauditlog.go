package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AdaptiveAuditLog holds the schema definition for the reinforcement loop's
// append-only audit trail (spec §4.8 "every update, including frozen
// no-ops"): append-only, no update/delete methods exposed above the
// storage layer, grounded on the teacher's telemetry_events convention.
type AdaptiveAuditLog struct {
	ent.Schema
}

// Fields of the AdaptiveAuditLog.
func (AdaptiveAuditLog) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.String("agent_id"),
		field.String("task_classification"),
		field.JSON("reward", map[string]interface{}{}).
			Comment("Serialized RewardComponents"),
		field.Float("reward_total"),
		field.JSON("params_before", map[string]interface{}{}),
		field.JSON("params_after", map[string]interface{}{}),
		field.Float("alpha"),
		field.Bool("frozen").
			Default(false),
		field.String("freeze_reason").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the AdaptiveAuditLog.
func (AdaptiveAuditLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id", "agent_id", "task_classification", "created_at"),
	}
}
