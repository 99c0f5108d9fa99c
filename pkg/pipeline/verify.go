package pipeline

// Verify runs the lockstep validation pass over inputs and reports the
// number of aligned records. Nothing is written.
func (t *Tools) Verify(inputs []string) (report *Report, err error) {
	run := NewRun(ToolVerify, t.metrics)
	defer func() { run.finish(&report, err) }()

	set, err := t.openInputs(inputs, claims{})
	if err != nil {
		return nil, err
	}
	defer closeSet(set)

	total, err := set.Count()
	if err != nil {
		return nil, err
	}
	t.recordRead(ToolVerify, total)
	if err := run.Advance(PhaseValidated); err != nil {
		return nil, err
	}
	if err := run.Advance(PhaseComputed); err != nil {
		return nil, err
	}
	if err := run.Skip(PhaseWritten); err != nil {
		return nil, err
	}
	return t.report(run, inputs, nil, total)
}
