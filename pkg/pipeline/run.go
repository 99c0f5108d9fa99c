package pipeline

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/ksuid"
	"k8s.io/klog/v2"

	"github.com/ssargent/datumkit/pkg/metrics"
)

// Phase is a step of a tool run. Runs move through the phases in order.
type Phase int

const (
	PhaseOpened Phase = iota
	PhaseValidated
	PhaseComputed
	PhaseWritten
	PhaseReported
)

var phaseNames = [...]string{"opened", "validated", "computed", "written", "reported"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Run tracks one tool invocation.
type Run struct {
	ID      ksuid.KSUID
	Tool    string
	Started time.Time

	phase   Phase
	skipped []Phase
	metrics *metrics.Metrics
}

// NewRun starts a run of tool in PhaseOpened.
func NewRun(tool string, m *metrics.Metrics) *Run {
	r := &Run{
		ID:      ksuid.New(),
		Tool:    tool,
		Started: time.Now(),
		phase:   PhaseOpened,
		metrics: m,
	}
	r.record()
	klog.V(2).InfoS("Run started", "run", r.ID, "tool", tool)
	return r
}

// Phase returns the phase the run has reached.
func (r *Run) Phase() Phase {
	return r.phase
}

// Skipped returns the phases passed over with Skip.
func (r *Run) Skipped() []Phase {
	return append([]Phase(nil), r.skipped...)
}

// Advance moves the run to next, which must directly follow the current phase.
func (r *Run) Advance(next Phase) error {
	if next != r.phase+1 {
		return errors.AssertionFailedf("run %s (%s): cannot move from %s to %s", r.ID, r.Tool, r.phase, next)
	}
	r.phase = next
	r.record()
	klog.V(4).InfoS("Run advanced", "run", r.ID, "phase", next)
	return nil
}

// Skip passes over the write phase for tools that produce no output store.
func (r *Run) Skip(p Phase) error {
	if p != PhaseWritten {
		return errors.AssertionFailedf("run %s (%s): only the %s phase can be skipped, not %s", r.ID, r.Tool, PhaseWritten, p)
	}
	if err := r.Advance(p); err != nil {
		return err
	}
	r.skipped = append(r.skipped, p)
	return nil
}

func (r *Run) record() {
	if r.metrics != nil {
		r.metrics.SetPhase(r.Tool, int(r.phase))
	}
}

// finish records the outcome of the run in metrics. A run that failed
// returns no report.
func (r *Run) finish(report **Report, err error) {
	count := 0
	if err != nil {
		*report = nil
	} else if *report != nil {
		count = (*report).Count
	}
	if r.metrics != nil {
		r.metrics.RecordRun(r.Tool, err == nil, count, time.Since(r.Started))
	}
	if err != nil {
		klog.V(2).InfoS("Run failed", "run", r.ID, "tool", r.Tool, "phase", r.phase, "err", err)
	}
}
