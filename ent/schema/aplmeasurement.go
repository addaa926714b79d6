package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// APLMeasurement holds the schema definition for one observed KPI value
// over a measurement window, compared against its APLBaseline to compute
// Agent Performance Lift (spec GLOSSARY). Out of scope to compute here per
// spec §1 non-goals; declared for the scheduled job's migration surface.
type APLMeasurement struct {
	ent.Schema
}

// Fields of the APLMeasurement.
func (APLMeasurement) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.String("agent_id"),
		field.String("kpi"),
		field.Float("observed_value"),
		field.Time("window_start"),
		field.Time("window_end"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the APLMeasurement.
func (APLMeasurement) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id", "agent_id", "kpi", "window_end"),
	}
}
