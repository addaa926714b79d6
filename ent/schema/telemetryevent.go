package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TelemetryEvent holds the schema definition for the append-only event log
// spec §6 names (`telemetry_events`). No code in this module writes to this
// table: internal/events.Publisher persists non-stream Events to
// `task_events`, and the budget and reinforce packages keep their records
// in memory.
// Grounded on the teacher's own `telemetry_events` append-only convention.
type TelemetryEvent struct {
	ent.Schema
}

// Fields of the TelemetryEvent.
func (TelemetryEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("task_id").
			Immutable(),
		field.String("kind").
			Immutable().
			Comment("status | stream | tool_call | approval_needed | done | error"),
		field.JSON("payload", map[string]interface{}{}).
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the TelemetryEvent.
func (TelemetryEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("task_id", "created_at"),
	}
}
