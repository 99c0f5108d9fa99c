// Package partition splits and permutes aligned store sets.
//
// Both operations are computed once per run from the validated key sequence
// of a lockstep.Set and then applied identically to every member, so that
// records which corresponded across stores before the run still correspond
// afterwards.
package partition

import (
	"github.com/cockroachdb/errors"

	"github.com/ssargent/datumkit/pkg/codec"
)

// ErrInvalidPartition is returned when a train size would leave either side
// of a split empty.
var ErrInvalidPartition = errors.New("invalid partition")

// Range is a half-open index range [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether i lies in the range.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// Partition divides an aligned sequence of Total records at TrainSize.
type Partition struct {
	Total     int
	TrainSize int
}

// Split validates a train/test boundary. trainSize must satisfy
// 0 < trainSize < total.
func Split(total, trainSize int) (Partition, error) {
	if trainSize >= total {
		return Partition{}, errors.Wrapf(ErrInvalidPartition,
			"train size %d is not less than the %d available records; keeping dataset as it is", trainSize, total)
	}
	if trainSize <= 0 {
		return Partition{}, errors.Wrapf(ErrInvalidPartition, "train size %d must be positive", trainSize)
	}
	return Partition{Total: total, TrainSize: trainSize}, nil
}

// Train returns the indices of the train set, [0, TrainSize).
func (p Partition) Train() Range {
	return Range{Start: 0, End: p.TrainSize}
}

// Test returns the indices of the test set, [TrainSize, Total).
func (p Partition) Test() Range {
	return Range{Start: p.TrainSize, End: p.Total}
}

// CheckKeys fails with codec.ErrOverflow when either side of p has more
// records than keys can number.
func (p Partition) CheckKeys(keys codec.KeyCodec) error {
	largest := p.Train().Len()
	if n := p.Test().Len(); n > largest {
		largest = n
	}
	if largest == 0 {
		return nil
	}
	if _, err := keys.Encode(int64(largest - 1)); err != nil {
		return errors.Wrapf(err, "splitting %d records at %d", p.Total, p.TrainSize)
	}
	return nil
}
