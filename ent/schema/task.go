package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Task holds the schema definition for a submitted unit of work (spec §3
// TaskDefinition/TaskEnvelope), persisted so the durable queue (spec §6
// "durable queue + pub-sub") is realized over the status column rather than
// a separate broker.
type Task struct {
	ent.Schema
}

// Fields of the Task.
func (Task) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("dag_id").
			Comment("Submission group this task's DAG belongs to"),
		field.String("company_id"),
		field.String("agent_id"),
		field.Text("spec_text"),
		field.JSON("acceptance_criteria", []string{}),
		field.Int("estimated_tokens").
			Default(0),
		field.Float("estimated_dollars").
			Default(0),
		field.JSON("dependency_ids", []string{}),
		field.String("outcome_id").
			Optional().
			Nillable(),
		field.Enum("status").
			Values("pending", "in_progress", "completed", "failed", "halted_for_approval", "interrupted").
			Default("pending"),
		field.Text("result").
			Optional().
			Nillable(),
		field.Text("error_message").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Indexes of the Task.
func (Task) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("dag_id"),
		index.Fields("status").
			Annotations(entsql.IndexWhere("status in ('pending', 'in_progress')")),
		index.Fields("company_id", "agent_id"),
	}
}
