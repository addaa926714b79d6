package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// KGEdge holds the schema definition for a directed knowledge-graph
// excerpt edge (spec §3.1, Open Question 3).
type KGEdge struct {
	ent.Schema
}

// Fields of the KGEdge.
func (KGEdge) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.String("from_node_id"),
		field.String("to_node_id"),
		field.String("relation"),
		field.JSON("properties", map[string]interface{}{}).
			Optional(),
	}
}

// Indexes of the KGEdge.
func (KGEdge) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id", "from_node_id"),
		index.Fields("company_id", "to_node_id"),
	}
}
