package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Credential holds the schema definition for the opaque credential proxy
// (spec §9): the plaintext secret is never exposed to agent code, only an
// opaque handle is. `sealed_value` holds the AEAD-encrypted secret;
// `nonce` is the per-row nonce used to seal it.
type Credential struct {
	ent.Schema
}

// Fields of the Credential.
func (Credential) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("company_id"),
		field.String("name").
			Comment("Logical credential name an agent references, never the secret itself"),
		field.Bytes("sealed_value").
			Sensitive(),
		field.Bytes("nonce").
			Sensitive(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("rotated_at").
			Optional().
			Nillable(),
	}
}

// Indexes of the Credential.
func (Credential) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("company_id", "name").
			Unique(),
	}
}
