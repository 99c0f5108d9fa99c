package normalize

import (
	"math"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/datumkit/pkg/codec"
	"github.com/ssargent/datumkit/pkg/storage"
)

// Stats are the per-field extremes observed over a store.
type Stats struct {
	Count int       `yaml:"count" json:"count"`
	Mins  []float64 `yaml:"mins" json:"mins"`
	Maxs  []float64 `yaml:"maxs" json:"maxs"`
}

// Fields returns the number of float fields.
func (s Stats) Fields() int {
	return len(s.Mins)
}

// Collector accumulates Stats one record at a time.
type Collector struct {
	mins  []float64
	maxs  []float64
	count int
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Observe folds one record's float fields into the running extremes. The
// first record fixes the field count for the rest of the pass.
func (c *Collector) Observe(key []byte, fields []float32) error {
	if c.count == 0 {
		if len(fields) == 0 {
			return errors.Wrapf(codec.ErrNoFloatData, "first record %q has no float fields", key)
		}
		c.mins = make([]float64, len(fields))
		c.maxs = make([]float64, len(fields))
		for j, x := range fields {
			c.mins[j] = float64(x)
			c.maxs[j] = float64(x)
		}
		c.count = 1
		return nil
	}

	if len(fields) != len(c.mins) {
		return errors.Wrapf(codec.ErrSchemaMismatch, "record %q has %d float fields, first record had %d",
			key, len(fields), len(c.mins))
	}
	for j, x := range fields {
		v := float64(x)
		c.mins[j] = math.Min(c.mins[j], v)
		c.maxs[j] = math.Max(c.maxs[j], v)
	}
	c.count++
	return nil
}

// Fit streams src once and observes every record.
func (c *Collector) Fit(src storage.OrderedStore, progress func(done int)) error {
	it, err := src.NewIterator()
	if err != nil {
		return err
	}
	defer it.Close()

	for it.First(); it.Valid(); it.Next() {
		r, err := codec.Unmarshal(it.Value())
		if err != nil {
			return errors.Wrapf(err, "record %q", it.Key())
		}
		if err := c.Observe(it.Key(), r.FloatData); err != nil {
			return err
		}
		if progress != nil {
			progress(c.count)
		}
	}
	if err := it.Error(); err != nil {
		return err
	}
	if c.count == 0 {
		return errors.Wrapf(codec.ErrNoFloatData, "store %s is empty", src.Path())
	}
	return nil
}

// Stats returns a copy of the accumulated statistics.
func (c *Collector) Stats() Stats {
	return Stats{
		Count: c.count,
		Mins:  append([]float64(nil), c.mins...),
		Maxs:  append([]float64(nil), c.maxs...),
	}
}

// DeriveParams derives normalization parameters from the accumulated statistics.
func (c *Collector) DeriveParams(a, b float64) (*Params, error) {
	return DeriveParams(c.Stats(), a, b)
}
