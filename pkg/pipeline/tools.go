package pipeline

import (
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"

	"github.com/ssargent/datumkit/pkg/codec"
	"github.com/ssargent/datumkit/pkg/config"
	"github.com/ssargent/datumkit/pkg/lockstep"
	"github.com/ssargent/datumkit/pkg/metrics"
	"github.com/ssargent/datumkit/pkg/storage"
)

// Tool names, used in reports, logs and metric labels.
const (
	ToolVerify      = "verify"
	ToolDivide      = "divide"
	ToolShuffle     = "shuffle"
	ToolSplit       = "split"
	ToolNormalize   = "normalize"
	ToolDenormalize = "denormalize"
)

// ErrDuplicateStore is returned when one store path is named twice in a run,
// either as two inputs or as an input and an output.
var ErrDuplicateStore = errors.New("store named more than once")

// Tools runs dataset tools against stores opened through one Opener.
type Tools struct {
	config  *config.Config
	opener  storage.Opener
	metrics *metrics.Metrics
}

// New creates a tool runner. m may be nil.
func New(cfg *config.Config, opener storage.Opener, m *metrics.Metrics) (*Tools, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &Tools{config: cfg, opener: opener, metrics: m}, nil
}

// Config returns the configuration the tools run with.
func (t *Tools) Config() *config.Config {
	return t.config
}

// claims tracks every store path a run touches.
type claims map[string]string

func (c claims) claim(resolved, name string) error {
	clean := filepath.Clean(resolved)
	if prev, ok := c[clean]; ok {
		return errors.Wrapf(ErrDuplicateStore, "%s and %s both refer to %s", prev, name, clean)
	}
	c[clean] = name
	return nil
}

func (t *Tools) openInputs(names []string, seen claims) (lockstep.Set, error) {
	if len(names) == 0 {
		return nil, errors.New("no input stores given")
	}
	for _, name := range names {
		if err := seen.claim(t.config.ResolvePath(name), name); err != nil {
			return nil, err
		}
	}

	set := make(lockstep.Set, 0, len(names))
	for _, name := range names {
		s, err := t.opener.Open(t.config.ResolvePath(name), storage.InputOptions())
		if err != nil {
			closeSet(set)
			return nil, errors.Wrapf(err, "opening input %s", name)
		}
		set = append(set, lockstep.Member{Name: name, Store: s})
	}
	return set, nil
}

func (t *Tools) openOutputs(names []string, seen claims) ([]storage.OrderedStore, error) {
	for _, name := range names {
		if err := seen.claim(t.config.ResolvePath(name), name); err != nil {
			return nil, err
		}
	}

	outs := make([]storage.OrderedStore, 0, len(names))
	for _, name := range names {
		s, err := t.opener.Open(t.config.ResolvePath(name), storage.OutputOptions(t.config.Overwrite))
		if err != nil {
			_ = storage.CloseAll(outs...)
			return nil, errors.Wrapf(err, "opening output %s", name)
		}
		outs = append(outs, s)
	}
	return outs, nil
}

func closeSet(set lockstep.Set) {
	for _, m := range set {
		if err := m.Store.Close(); err != nil {
			klog.Warningf("closing %s: %v", m.Name, err)
		}
	}
}

// closeOutputs closes outs and folds a close failure into *err, since a
// failed close may mean unflushed records.
func closeOutputs(outs []storage.OrderedStore, err *error) {
	if cerr := storage.CloseAll(outs...); cerr != nil && *err == nil {
		*err = errors.Wrap(cerr, "closing outputs")
	}
}

// progress returns a callback that logs every InfoInterval records.
func (t *Tools) progress(verb string) func(done int) {
	interval := t.config.InfoInterval
	return func(done int) {
		if done%interval == 0 {
			klog.Infof("%s %s records", verb, humanize.Comma(int64(done)))
		}
	}
}

// inferSchema reads the first record of s and logs the inferred layout.
func inferSchema(name string, s storage.OrderedStore) (codec.Schema, error) {
	it, err := s.NewIterator()
	if err != nil {
		return codec.Schema{}, err
	}
	defer it.Close()

	if !it.First() {
		if err := it.Error(); err != nil {
			return codec.Schema{}, errors.Wrapf(err, "reading %s", name)
		}
		return codec.Schema{}, errors.Wrapf(codec.ErrNoFloatData, "store %s is empty", name)
	}
	schema, err := codec.InferSchema(it.Value())
	if err != nil {
		return codec.Schema{}, errors.Wrapf(err, "store %s", name)
	}
	shape := schema.Shape
	klog.Infof("Inferred shape: %d %d %d", shape.Channels, shape.Height, shape.Width)
	klog.Infof("Inferred float_data_size: %d", schema.FloatFields)
	return schema, nil
}

func (t *Tools) recordWritten(tool string, outputs []string, n int) {
	if t.metrics == nil {
		return
	}
	for _, name := range outputs {
		t.metrics.RecordWritten(tool, name, n)
	}
}

func (t *Tools) recordRead(tool string, n int) {
	if t.metrics != nil {
		t.metrics.RecordRead(tool, n)
	}
}

// report closes out a run and builds its report.
func (t *Tools) report(run *Run, inputs, outputs []string, count int) (*Report, error) {
	if err := run.Advance(PhaseReported); err != nil {
		return nil, err
	}
	if len(outputs) > 0 {
		klog.Infof("Wrote %s datums into %v", humanize.Comma(int64(count)), outputs)
	}
	return &Report{
		RunID:    run.ID.String(),
		Tool:     run.Tool,
		Inputs:   inputs,
		Outputs:  outputs,
		Count:    count,
		Skipped:  run.Skipped(),
		Duration: time.Since(run.Started),
	}, nil
}

func withSuffix(names []string, suffix string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = name + suffix
	}
	return out
}
