package pipeline

import (
	"github.com/ssargent/datumkit/pkg/fieldsplit"
)

// SplitFields writes the payload of every record in input to
// <prefix>_input and its float fields to <prefix>_target, under the
// record's original key.
func (t *Tools) SplitFields(input, prefix string) (report *Report, err error) {
	run := NewRun(ToolSplit, t.metrics)
	defer func() { run.finish(&report, err) }()

	seen := claims{}
	set, err := t.openInputs([]string{input}, seen)
	if err != nil {
		return nil, err
	}
	defer closeSet(set)

	schema, err := inferSchema(input, set[0].Store)
	if err != nil {
		return nil, err
	}
	if err := run.Advance(PhaseValidated); err != nil {
		return nil, err
	}

	splitter, err := fieldsplit.NewSplitter(schema, t.config.StrictSchema)
	if err != nil {
		return nil, err
	}
	if err := run.Advance(PhaseComputed); err != nil {
		return nil, err
	}

	names := []string{prefix + t.config.Suffixes.Input, prefix + t.config.Suffixes.Target}
	outs, err := t.openOutputs(names, seen)
	if err != nil {
		return nil, err
	}
	defer closeOutputs(outs, &err)

	n, err := splitter.Write(set[0].Store, outs[0], outs[1], t.progress("Processed"))
	if err != nil {
		return nil, err
	}
	t.recordRead(ToolSplit, n)
	t.recordWritten(ToolSplit, names, n)
	if err := run.Advance(PhaseWritten); err != nil {
		return nil, err
	}

	report, err = t.report(run, set.Names(), names, n)
	if err != nil {
		return nil, err
	}
	report.Schema = &schema
	report.Mismatches = splitter.Mismatches()
	return report, nil
}
