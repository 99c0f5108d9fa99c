package pipeline

import (
	"k8s.io/klog/v2"

	"github.com/ssargent/datumkit/pkg/codec"
	"github.com/ssargent/datumkit/pkg/partition"
)

// Divide splits every input store into a train store holding the first
// trainSize aligned records and a test store holding the rest. Both sides are
// renumbered from zero with fixed-width keys.
func (t *Tools) Divide(trainSize int, inputs []string) (report *Report, err error) {
	run := NewRun(ToolDivide, t.metrics)
	defer func() { run.finish(&report, err) }()

	keys, err := codec.NewKeyCodec(t.config.KeyWidth)
	if err != nil {
		return nil, err
	}

	seen := claims{}
	set, err := t.openInputs(inputs, seen)
	if err != nil {
		return nil, err
	}
	defer closeSet(set)

	total, err := set.Count()
	if err != nil {
		return nil, err
	}
	t.recordRead(ToolDivide, total)
	klog.Infof("Validated %d aligned stores with %d records", len(set), total)
	if err := run.Advance(PhaseValidated); err != nil {
		return nil, err
	}

	p, err := partition.Split(total, trainSize)
	if err != nil {
		return nil, err
	}
	if err := p.CheckKeys(keys); err != nil {
		return nil, err
	}
	if err := run.Advance(PhaseComputed); err != nil {
		return nil, err
	}

	trainNames := withSuffix(inputs, t.config.Suffixes.Train)
	testNames := withSuffix(inputs, t.config.Suffixes.Test)
	outs, err := t.openOutputs(append(append([]string(nil), trainNames...), testNames...), seen)
	if err != nil {
		return nil, err
	}
	defer closeOutputs(outs, &err)

	result, err := partition.WriteSplit(set, p, keys, outs[:len(set)], outs[len(set):], t.progress("Processed"))
	if err != nil {
		return nil, err
	}
	t.recordWritten(ToolDivide, trainNames, result.Train)
	t.recordWritten(ToolDivide, testNames, result.Test)
	if err := run.Advance(PhaseWritten); err != nil {
		return nil, err
	}

	report, err = t.report(run, inputs, append(trainNames, testNames...), total)
	if err != nil {
		return nil, err
	}
	report.Train = result.Train
	report.Test = result.Test
	return report, nil
}
