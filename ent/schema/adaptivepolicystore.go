package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AdaptivePolicyStore holds the schema definition for the reinforcement
// loop's versioned parameter store (spec §4.8): read-deactivate-insert, a
// unique partial index on (company_id, agent_id, task_classification)
// WHERE active so Load always resolves to exactly one active row,
// grounded on the teacher's partial-index idiom for soft deletes.
type AdaptivePolicyStore struct {
	ent.Schema
}

// Fields of the AdaptivePolicyStore.
func (AdaptivePolicyStore) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.String("agent_id"),
		field.String("task_classification"),
		field.Int("version"),
		field.JSON("provider_q", map[string]float64{}),
		field.Float("escalation_delta"),
		field.Float("budget_multiplier"),
		field.Float("retry_weighting"),
		field.Float("delegation_depth"),
		field.Float("alpha"),
		field.Int("update_count").
			Default(0),
		field.Bool("frozen").
			Default(false),
		field.Bool("active").
			Default(true),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the AdaptivePolicyStore.
func (AdaptivePolicyStore) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id", "agent_id", "task_classification").
			Unique().
			Annotations(entsql.IndexWhere("active")),
		index.Fields("company_id", "agent_id", "task_classification", "version"),
	}
}
