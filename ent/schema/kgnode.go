package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// KGNode holds the schema definition for a knowledge-graph excerpt node
// (spec §3.1, Open Question 3). Traversal uses an explicit visited set
// (spec §9 "Graph cycles") since KG edges may cycle even though the task
// DAG may not.
type KGNode struct {
	ent.Schema
}

// Fields of the KGNode.
func (KGNode) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.String("kind"),
		field.String("label"),
		field.JSON("properties", map[string]interface{}{}).
			Optional(),
	}
}

// Indexes of the KGNode.
func (KGNode) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id", "kind"),
	}
}
