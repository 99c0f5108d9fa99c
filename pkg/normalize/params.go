package normalize

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/datumkit/pkg/codec"
	"github.com/ssargent/datumkit/pkg/storage"
)

// FieldParams holds the observed range and affine map of one field.
type FieldParams struct {
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Slope float64 `yaml:"slope"`
	Bias  float64 `yaml:"bias"`
}

// Params maps every field into [A, B].
type Params struct {
	A      float64       `yaml:"a"`
	B      float64       `yaml:"b"`
	Fields []FieldParams `yaml:"fields"`
}

// DeriveParams computes slope and bias for every field of stats. It fails
// with ErrInvalidInterval unless a < b, and with a *DegenerateRangeError
// naming every field whose minimum equals its maximum or whose range is not
// finite.
func DeriveParams(stats Stats, a, b float64) (*Params, error) {
	if !(a < b) {
		return nil, errors.Wrapf(ErrInvalidInterval, "[%g, %g]", a, b)
	}
	if stats.Fields() == 0 {
		return nil, errors.Wrap(codec.ErrNoFloatData, "no statistics collected")
	}

	p := &Params{A: a, B: b, Fields: make([]FieldParams, stats.Fields())}
	var degenerate DegenerateRangeError
	for j := range p.Fields {
		lo, hi := stats.Mins[j], stats.Maxs[j]
		if !finite(lo) || !finite(hi) {
			degenerate.NonFinite = append(degenerate.NonFinite, j)
			continue
		}
		if hi == lo {
			degenerate.Fields = append(degenerate.Fields, j)
			degenerate.Values = append(degenerate.Values, lo)
			continue
		}
		slope := (b - a) / (hi - lo)
		p.Fields[j] = FieldParams{Min: lo, Max: hi, Slope: slope, Bias: a - slope*lo}
	}
	if len(degenerate.Fields) > 0 || len(degenerate.NonFinite) > 0 {
		return nil, &degenerate
	}
	return p, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Normalize returns slope*x + bias for field j.
func (p *Params) Normalize(j int, x float64) float64 {
	return p.Fields[j].Slope*x + p.Fields[j].Bias
}

// Denormalize returns (y - bias) / slope for field j.
func (p *Params) Denormalize(j int, y float64) float64 {
	return (y - p.Fields[j].Bias) / p.Fields[j].Slope
}

// Inverse returns parameters whose application undoes p. Each inverted
// field's input range is [A, B]; the inverse has no single target interval,
// so its A and B are left zero.
func (p *Params) Inverse() *Params {
	inv := &Params{Fields: make([]FieldParams, len(p.Fields))}
	for j, f := range p.Fields {
		inv.Fields[j] = FieldParams{
			Min:   p.A,
			Max:   p.B,
			Slope: 1 / f.Slope,
			Bias:  -f.Bias / f.Slope,
		}
	}
	return inv
}

// Transform returns a new slice with field j replaced by slope[j]*x + bias[j].
// Fields beyond those described by p are copied unchanged.
func (p *Params) Transform(fields []float32) ([]float32, error) {
	if len(fields) < len(p.Fields) {
		return nil, errors.Wrapf(codec.ErrSchemaMismatch, "record has %d float fields, parameters describe %d",
			len(fields), len(p.Fields))
	}
	out := append([]float32(nil), fields...)
	for j := range p.Fields {
		out[j] = float32(p.Normalize(j, float64(fields[j])))
	}
	return out, nil
}

// Apply streams src and writes every record to dst under its original key
// with its float fields transformed by p. Other record fields are kept.
func Apply(src, dst storage.OrderedStore, p *Params, progress func(done int)) (int, error) {
	it, err := src.NewIterator()
	if err != nil {
		return 0, err
	}
	defer it.Close()

	count := 0
	for it.First(); it.Valid(); it.Next() {
		r, err := codec.Unmarshal(it.Value())
		if err != nil {
			return count, errors.Wrapf(err, "record %q", it.Key())
		}
		fields, err := p.Transform(r.FloatData)
		if err != nil {
			return count, errors.Wrapf(err, "record %q", it.Key())
		}
		out := *r
		out.FloatData = fields
		if err := dst.Put(it.Key(), codec.Marshal(&out)); err != nil {
			return count, err
		}

		count++
		if progress != nil {
			progress(count)
		}
	}
	return count, it.Error()
}

// SaveParams writes p to path as YAML.
func SaveParams(p *Params, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.Wrap(err, "failed to create parameter directory")
		}
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "failed to marshal parameters")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write parameter file")
	}
	return nil
}

// LoadParams reads parameters written by SaveParams.
func LoadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read parameter file")
	}
	var p Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "failed to parse parameter file")
	}
	if len(p.Fields) == 0 {
		return nil, errors.Newf("parameter file %s describes no fields", path)
	}
	for j, f := range p.Fields {
		if f.Slope == 0 {
			return nil, errors.Newf("parameter file %s: field %d has zero slope", path, j)
		}
	}
	return &p, nil
}

func (p *Params) String() string {
	return fmt.Sprintf("normalize %d fields into [%g, %g]", len(p.Fields), p.A, p.B)
}
