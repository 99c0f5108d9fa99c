package codec

import (
	"github.com/cockroachdb/errors"
)

// Schema is the layout of a store, as inferred from its first record.
//
// Stores carry no schema of their own. Treating the first record as
// authoritative is a known limitation; Check lets callers verify the
// assumption record by record instead of trusting it.
type Schema struct {
	Shape       Shape `json:"shape"`
	FloatFields int   `json:"float_fields"`
}

// InferSchema decodes the first record of a store and derives its schema.
func InferSchema(first []byte) (Schema, error) {
	r, err := Unmarshal(first)
	if err != nil {
		return Schema{}, errors.Wrap(err, "inferring schema from first record")
	}
	return Schema{Shape: r.Shape(), FloatFields: len(r.FloatData)}, nil
}

// RequireFloatData returns ErrNoFloatData if the schema has no float fields.
func (s Schema) RequireFloatData() error {
	if s.FloatFields == 0 {
		return errors.Wrap(ErrNoFloatData, "first record has no float fields")
	}
	return nil
}

// Check reports whether r matches the schema.
func (s Schema) Check(key []byte, r *Record) error {
	if r.Shape() != s.Shape {
		return errors.Wrapf(ErrSchemaMismatch, "record %q has shape %s, expected %s", key, r.Shape(), s.Shape)
	}
	if len(r.FloatData) != s.FloatFields {
		return errors.Wrapf(ErrSchemaMismatch, "record %q has %d float fields, expected %d",
			key, len(r.FloatData), s.FloatFields)
	}
	return nil
}
