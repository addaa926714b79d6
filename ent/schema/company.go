package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// Company holds the schema definition for a company's organizational record
// (spec §3.1 supplemental entities).
type Company struct {
	ent.Schema
}

// Fields of the Company.
func (Company) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("name").
			Optional().
			Nillable(),
	}
}
