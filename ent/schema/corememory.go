package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CoreMemory holds the schema definition for the `core_memory` table (spec
// §6): a durable note an agent can recall across tasks, distinct from the
// capped ActiveContextSnapshot carried on every TaskEnvelope. Backs the
// GET/DELETE /api/memory[/{id}] endpoints (internal/api.MemoryStore).
type CoreMemory struct {
	ent.Schema
}

// Fields of the CoreMemory.
func (CoreMemory) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("agent_id"),
		field.String("record_type"),
		field.Text("content"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the CoreMemory.
func (CoreMemory) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "record_type"),
	}
}
