// Package fieldsplit decomposes records that carry both a primary payload and
// float fields into two records: an input record holding the payload and a
// target record holding the float fields as a 1x1xk payload. Regression data
// layers consume the two halves from separate stores that share keys.
package fieldsplit

import (
	"github.com/cockroachdb/errors"
	"k8s.io/klog/v2"

	"github.com/ssargent/datumkit/pkg/codec"
	"github.com/ssargent/datumkit/pkg/storage"
)

// Split decomposes r using its own shape.
func Split(r *codec.Record) (input, target *codec.Record, err error) {
	if len(r.FloatData) == 0 {
		return nil, nil, errors.Wrap(codec.ErrNoFloatData, "nothing to split into a target")
	}
	input = &codec.Record{
		Channels: r.Channels,
		Height:   r.Height,
		Width:    r.Width,
		Data:     r.Data,
		Encoded:  r.Encoded,
	}
	target = &codec.Record{
		Channels:  1,
		Height:    1,
		Width:     int32(len(r.FloatData)),
		FloatData: r.FloatData,
	}
	return input, target, nil
}

// Splitter splits every record of a store according to the schema inferred
// from its first record.
type Splitter struct {
	schema  codec.Schema
	strict  bool
	warned  bool
	skipped int
}

// NewSplitter returns a splitter for schema. With strict set, a record whose
// shape or float-field count differs from schema is an error; otherwise the
// mismatch is counted and logged once.
func NewSplitter(schema codec.Schema, strict bool) (*Splitter, error) {
	if err := schema.RequireFloatData(); err != nil {
		return nil, errors.Wrap(err, "can not split dataset")
	}
	return &Splitter{schema: schema, strict: strict}, nil
}

// Mismatches returns the number of records that did not match the schema.
func (s *Splitter) Mismatches() int {
	return s.skipped
}

// Split decomposes one record. The input record takes the schema's shape, the
// target record's width is the record's own float-field count.
func (s *Splitter) Split(key []byte, r *codec.Record) (input, target *codec.Record, err error) {
	if err := s.schema.Check(key, r); err != nil {
		if s.strict {
			return nil, nil, err
		}
		s.skipped++
		if !s.warned {
			s.warned = true
			klog.Warningf("%v; continuing with the inferred schema", err)
		}
	}

	input, target, err = Split(r)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "record %q", key)
	}
	input.Channels = int32(s.schema.Shape.Channels)
	input.Height = int32(s.schema.Shape.Height)
	input.Width = int32(s.schema.Shape.Width)
	return input, target, nil
}

// Write streams src and writes the two halves of every record under its
// original key into inputs and targets. It returns the number of records
// split and a progress callback is invoked after each one.
func (s *Splitter) Write(src, inputs, targets storage.OrderedStore, progress func(done int)) (int, error) {
	it, err := src.NewIterator()
	if err != nil {
		return 0, err
	}
	defer it.Close()

	count := 0
	for it.First(); it.Valid(); it.Next() {
		key := append([]byte(nil), it.Key()...)
		r, err := codec.Unmarshal(it.Value())
		if err != nil {
			return count, errors.Wrapf(err, "record %q", key)
		}

		input, target, err := s.Split(key, r)
		if err != nil {
			return count, err
		}
		if err := inputs.Put(key, codec.Marshal(input)); err != nil {
			return count, err
		}
		if err := targets.Put(key, codec.Marshal(target)); err != nil {
			return count, err
		}

		count++
		if progress != nil {
			progress(count)
		}
	}
	return count, it.Error()
}
