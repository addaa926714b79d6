package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Royalty holds the schema definition for the `royalties` table spec §6
// names in the storage surface. No runtime logic reads or writes this
// table from the runtime core (out of scope per spec §1 non-goals); it is
// declared so the storage surface is complete and any future royalty-
// accounting job can migrate against it.
type Royalty struct {
	ent.Schema
}

// Fields of the Royalty.
func (Royalty) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.String("agent_id"),
		field.Float("amount_dollars"),
		field.Time("period_start"),
		field.Time("period_end"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the Royalty.
func (Royalty) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id", "agent_id", "period_end"),
	}
}
