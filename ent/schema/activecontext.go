package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ActiveContext holds the schema definition for the capped, persistent
// per-company/agent context object (spec §4.6 step 2): decisions ≤ 15,
// history ≤ 10, open questions ≤ 20, experiments ≤ 10, key people ≤ 15.
// Stored as a single JSON column row guarded by an optimistic version
// column so two workers updating the same company's context don't clobber
// each other.
type ActiveContext struct {
	ent.Schema
}

// Fields of the ActiveContext.
func (ActiveContext) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.String("agent_id"),
		field.JSON("snapshot", map[string]interface{}{}).
			Comment("Serialized OrgContext: active decisions, history, open questions, experiments, key people"),
		field.Int("version").
			Default(1).
			Comment("Optimistic concurrency token, incremented on every write"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the ActiveContext.
func (ActiveContext) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id", "agent_id").
			Unique(),
	}
}
