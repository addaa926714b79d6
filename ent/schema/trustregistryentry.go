package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TrustRegistryEntry holds the schema definition for the `trust_registry`
// table spec §6 names in the storage surface. No runtime logic reads or
// writes this table from the runtime core (out of scope per spec §1
// non-goals); declared so the storage surface is complete.
type TrustRegistryEntry struct {
	ent.Schema
}

// Fields of the TrustRegistryEntry.
func (TrustRegistryEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.String("agent_id"),
		field.Float("trust_score"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the TrustRegistryEntry.
func (TrustRegistryEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id", "agent_id").
			Unique(),
	}
}
