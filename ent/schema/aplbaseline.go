package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// APLBaseline holds the schema definition for a KPI's pre-agent baseline
// value (spec GLOSSARY "APL (Agent Performance Lift)"): Agent Performance
// Lift computation itself is a scheduled job, out of scope per spec §1
// non-goals, but the storage surface is declared so that job can migrate
// against it.
type APLBaseline struct {
	ent.Schema
}

// Fields of the APLBaseline.
func (APLBaseline) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.String("kpi"),
		field.Float("baseline_value"),
		field.Time("measured_at").
			Default(time.Now),
	}
}

// Indexes of the APLBaseline.
func (APLBaseline) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id", "kpi"),
	}
}
