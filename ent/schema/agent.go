package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Agent holds the schema definition for an agent's persona/policy record
// (spec §3.1 supplemental entities): read-mostly reference data consumed
// when building a TaskEnvelope's security context and judgment parameters.
type Agent struct {
	ent.Schema
}

// Fields of the Agent.
func (Agent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.Text("goal"),
		field.JSON("key_people", []string{}),
		field.String("optimization_mode"),
		field.JSON("constraints", []map[string]interface{}{}).
			Comment("Serialized []types.Constraint"),
		field.JSON("triggers", []map[string]interface{}{}).
			Comment("Serialized []types.Trigger"),
		field.JSON("confidence_ranges", []map[string]interface{}{}).
			Comment("Serialized []types.ConfidenceRange"),
		field.JSON("allowed_adapter_ids", []string{}),
		field.Float("max_spend_dollars").
			Default(0),
	}
}

// Indexes of the Agent.
func (Agent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id"),
	}
}
