package pipeline

import (
	"github.com/cockroachdb/errors"
	"k8s.io/klog/v2"

	"github.com/ssargent/datumkit/pkg/normalize"
	"github.com/ssargent/datumkit/pkg/storage"
)

// NormalizeOptions are the optional outputs of Normalize.
type NormalizeOptions struct {
	Output     string // store to write the normalized records to
	ParamsFile string // YAML file to save the derived parameters to
}

// Normalize computes per-field extremes of input's float fields and the
// affine parameters mapping them into [a, b]. The statistics and parameters
// are always reported; the normalized store and parameter file are written
// only when requested.
func (t *Tools) Normalize(a, b float64, input string, opts NormalizeOptions) (report *Report, err error) {
	run := NewRun(ToolNormalize, t.metrics)
	defer func() { run.finish(&report, err) }()

	if !(a < b) {
		return nil, errors.Wrapf(normalize.ErrInvalidInterval, "[%g, %g]", a, b)
	}

	seen := claims{}
	set, err := t.openInputs([]string{input}, seen)
	if err != nil {
		return nil, err
	}
	defer closeSet(set)
	src := set[0].Store

	schema, err := inferSchema(input, src)
	if err != nil {
		return nil, err
	}
	if err := schema.RequireFloatData(); err != nil {
		return nil, errors.Wrapf(err, "can not normalize %s", input)
	}
	if err := run.Advance(PhaseValidated); err != nil {
		return nil, err
	}

	collector := normalize.NewCollector()
	if err := collector.Fit(src, t.progress("Scanned")); err != nil {
		return nil, err
	}
	stats := collector.Stats()
	t.recordRead(ToolNormalize, stats.Count)
	for j := range stats.Mins {
		klog.Infof("Field %d: min %g max %g", j, stats.Mins[j], stats.Maxs[j])
	}
	params, err := collector.DeriveParams(a, b)
	if err != nil {
		return nil, err
	}
	klog.Infof("Derived %s", params)
	if opts.ParamsFile != "" {
		if err := normalize.SaveParams(params, opts.ParamsFile); err != nil {
			return nil, err
		}
		klog.Infof("Saved normalization parameters to %s", opts.ParamsFile)
	}
	if err := run.Advance(PhaseComputed); err != nil {
		return nil, err
	}

	var outputs []string
	if opts.Output == "" {
		if err := run.Skip(PhaseWritten); err != nil {
			return nil, err
		}
	} else {
		outputs = []string{opts.Output}
		if _, err := t.applyParams(ToolNormalize, src, params, outputs, seen); err != nil {
			return nil, err
		}
		if err := run.Advance(PhaseWritten); err != nil {
			return nil, err
		}
	}

	report, err = t.report(run, []string{input}, outputs, stats.Count)
	if err != nil {
		return nil, err
	}
	report.Schema = &schema
	report.Stats = &stats
	report.Params = params
	return report, nil
}

// Denormalize maps the float fields of input back through the inverse of the
// parameters saved in paramsFile and writes the result to output.
func (t *Tools) Denormalize(paramsFile, input, output string) (report *Report, err error) {
	run := NewRun(ToolDenormalize, t.metrics)
	defer func() { run.finish(&report, err) }()

	params, err := normalize.LoadParams(paramsFile)
	if err != nil {
		return nil, err
	}

	seen := claims{}
	set, err := t.openInputs([]string{input}, seen)
	if err != nil {
		return nil, err
	}
	defer closeSet(set)
	src := set[0].Store

	schema, err := inferSchema(input, src)
	if err != nil {
		return nil, err
	}
	if schema.FloatFields < len(params.Fields) {
		return nil, errors.Newf("%s has %d float fields, %s describes %d",
			input, schema.FloatFields, paramsFile, len(params.Fields))
	}
	if err := run.Advance(PhaseValidated); err != nil {
		return nil, err
	}

	inverse := params.Inverse()
	if err := run.Advance(PhaseComputed); err != nil {
		return nil, err
	}

	outputs := []string{output}
	n, err := t.applyParams(ToolDenormalize, src, inverse, outputs, seen)
	if err != nil {
		return nil, err
	}
	t.recordRead(ToolDenormalize, n)
	if err := run.Advance(PhaseWritten); err != nil {
		return nil, err
	}

	report, err = t.report(run, []string{input}, outputs, n)
	if err != nil {
		return nil, err
	}
	report.Schema = &schema
	report.Params = inverse
	return report, nil
}

func (t *Tools) applyParams(tool string, src storage.OrderedStore, p *normalize.Params, outputs []string, seen claims) (n int, err error) {
	outs, err := t.openOutputs(outputs, seen)
	if err != nil {
		return 0, err
	}
	defer closeOutputs(outs, &err)

	n, err = normalize.Apply(src, outs[0], p, t.progress("Processed"))
	if err != nil {
		return n, err
	}
	t.recordWritten(tool, outputs, n)
	return n, nil
}
