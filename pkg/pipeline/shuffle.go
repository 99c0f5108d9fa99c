package pipeline

import (
	"k8s.io/klog/v2"

	"github.com/ssargent/datumkit/pkg/partition"
)

// Shuffle writes a shuffled copy of every input store. One permutation is
// drawn per run and applied to every store, so records that corresponded
// before the shuffle still correspond after it. Output keys are the input
// keys. A zero seed draws a random one, which is logged and reported.
func (t *Tools) Shuffle(seed uint64, inputs []string) (report *Report, err error) {
	run := NewRun(ToolShuffle, t.metrics)
	defer func() { run.finish(&report, err) }()

	seen := claims{}
	set, err := t.openInputs(inputs, seen)
	if err != nil {
		return nil, err
	}
	defer closeSet(set)

	keys, err := set.Keys()
	if err != nil {
		return nil, err
	}
	t.recordRead(ToolShuffle, len(keys))
	klog.Infof("Validated %d aligned stores with %d records", len(set), len(keys))
	if err := run.Advance(PhaseValidated); err != nil {
		return nil, err
	}

	if seed == 0 {
		seed = partition.RandomSeed()
	}
	klog.Infof("Shuffling with seed %d", seed)
	perm := partition.NewPermutation(len(keys), partition.NewRand(seed))
	if err := run.Advance(PhaseComputed); err != nil {
		return nil, err
	}

	names := withSuffix(inputs, t.config.Suffixes.Shuffled)
	outs, err := t.openOutputs(names, seen)
	if err != nil {
		return nil, err
	}
	defer closeOutputs(outs, &err)

	n, err := partition.WriteShuffled(set, keys, perm, outs, t.progress("Processed"))
	if err != nil {
		return nil, err
	}
	t.recordWritten(ToolShuffle, names, n)
	if err := run.Advance(PhaseWritten); err != nil {
		return nil, err
	}

	report, err = t.report(run, inputs, names, n)
	if err != nil {
		return nil, err
	}
	report.Seed = seed
	return report, nil
}
