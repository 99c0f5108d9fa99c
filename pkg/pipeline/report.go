package pipeline

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ssargent/datumkit/pkg/codec"
	"github.com/ssargent/datumkit/pkg/normalize"
)

// Report is the outcome of a completed run.
type Report struct {
	RunID    string
	Tool     string
	Inputs   []string
	Outputs  []string
	Count    int
	Skipped  []Phase
	Duration time.Duration

	// divide
	Train int
	Test  int

	// shuffle
	Seed uint64

	// split, normalize
	Schema     *codec.Schema
	Mismatches int

	// normalize
	Stats  *normalize.Stats
	Params *normalize.Params
}

// Print writes a human-readable summary of r to w.
func (r *Report) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "run:\t%s\n", r.RunID)
	fmt.Fprintf(tw, "tool:\t%s\n", r.Tool)
	fmt.Fprintf(tw, "inputs:\t%s\n", strings.Join(r.Inputs, ", "))
	if len(r.Outputs) > 0 {
		fmt.Fprintf(tw, "outputs:\t%s\n", strings.Join(r.Outputs, ", "))
	}
	fmt.Fprintf(tw, "records:\t%s\n", humanize.Comma(int64(r.Count)))
	if r.Tool == ToolDivide {
		fmt.Fprintf(tw, "train:\t%s\n", humanize.Comma(int64(r.Train)))
		fmt.Fprintf(tw, "test:\t%s\n", humanize.Comma(int64(r.Test)))
	}
	if r.Tool == ToolShuffle {
		fmt.Fprintf(tw, "seed:\t%d\n", r.Seed)
	}
	if r.Schema != nil {
		fmt.Fprintf(tw, "shape:\t%s\n", r.Schema.Shape)
		fmt.Fprintf(tw, "float fields:\t%d\n", r.Schema.FloatFields)
	}
	if r.Mismatches > 0 {
		fmt.Fprintf(tw, "schema mismatches:\t%s\n", humanize.Comma(int64(r.Mismatches)))
	}
	fmt.Fprintf(tw, "duration:\t%s\n", r.Duration.Round(time.Millisecond))

	if r.Params != nil {
		fmt.Fprintf(tw, "\nfield\tmin\tmax\tslope\tbias\n")
		for j, f := range r.Params.Fields {
			fmt.Fprintf(tw, "%d\t%g\t%g\t%g\t%g\n", j, f.Min, f.Max, f.Slope, f.Bias)
		}
	}
	return tw.Flush()
}
