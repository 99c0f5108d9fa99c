package codec

import "github.com/cockroachdb/errors"

var (
	// ErrOverflow is returned when an index does not fit the configured key width.
	ErrOverflow = errors.New("index overflows key width")

	// ErrMalformed is returned when a record payload cannot be decoded.
	ErrMalformed = errors.New("malformed record")

	// ErrNoFloatData is returned when a record or store carries no float fields
	// but the operation needs them.
	ErrNoFloatData = errors.New("no float data")

	// ErrSchemaMismatch is returned when a record does not match the schema
	// inferred from the first record of its store.
	ErrSchemaMismatch = errors.New("record does not match inferred schema")
)
