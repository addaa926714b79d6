package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ApprovalRequest holds the schema definition for the durable approval queue
// backing the Approval Gate (spec §4.4).
type ApprovalRequest struct {
	ent.Schema
}

// Fields of the ApprovalRequest.
func (ApprovalRequest) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("task_id").
			Comment("Task awaiting review"),
		field.String("agent_id"),
		field.Text("reason"),
		field.Enum("status").
			Values("pending", "approved", "rejected", "timed_out").
			Default("pending"),
		field.String("resolved_by").
			Optional().
			Nillable(),
		field.Time("resolved_at").
			Optional().
			Nillable(),
		field.Text("resolution_reason").
			Optional().
			Nillable(),
		field.Text("correction_content").
			Optional().
			Nillable().
			Comment("Reviewer-attached correction, forwarded to the training service"),
		field.Bool("correction_incorporated").
			Default(false),
		field.Bool("auto_resolved").
			Default(false).
			Comment("Set when timeoutAction resolved the row instead of a human"),
		field.Time("created_at").
			Default(time.Now),
		field.Time("timeout_at").
			Comment("created_at + timeoutMs, precomputed so the poller can sort by deadline"),
	}
}

// Indexes of the ApprovalRequest.
func (ApprovalRequest) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("task_id"),
		index.Fields("status", "timeout_at"),
		index.Fields("status").
			Annotations(entsql.IndexWhere("status = 'pending'")),
	}
}
