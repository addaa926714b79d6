package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Seat holds the schema definition for a company/role slot whose assigned
// agent can be reassigned by an external admin action (spec §3.1): the
// runtime core only reads seat assignment, it never recomputes one itself
// (APL assignment is a scheduled job out of scope per spec §1 non-goals).
type Seat struct {
	ent.Schema
}

// Fields of the Seat.
func (Seat) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.String("role"),
		field.String("agent_id").
			Optional().
			Nillable(),
		field.Time("assigned_at").
			Default(time.Now),
	}
}

// Indexes of the Seat.
func (Seat) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id", "role").
			Unique(),
	}
}
