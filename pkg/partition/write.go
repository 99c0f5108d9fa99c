package partition

import (
	"github.com/cockroachdb/errors"

	"github.com/ssargent/datumkit/pkg/codec"
	"github.com/ssargent/datumkit/pkg/lockstep"
	"github.com/ssargent/datumkit/pkg/storage"
)

// Progress is called after each record has been written to every output.
// done counts records written so far in the current pass.
type Progress func(done int)

// SplitResult reports how many records went to each side of a split.
type SplitResult struct {
	Train int
	Test  int
}

// WriteSplit streams set from its first record, writing the train range to
// train[i] and the remainder to test[i] for every member i. Both sides are
// renumbered densely from zero with keys.
func WriteSplit(set lockstep.Set, p Partition, keys codec.KeyCodec, train, test []storage.OrderedStore, progress Progress) (SplitResult, error) {
	if len(train) != len(set) || len(test) != len(set) {
		return SplitResult{}, errors.AssertionFailedf("split needs one train and one test store per member: %d members, %d train, %d test",
			len(set), len(train), len(test))
	}
	if err := p.CheckKeys(keys); err != nil {
		return SplitResult{}, err
	}

	c, err := set.Cursor()
	if err != nil {
		return SplitResult{}, err
	}
	defer c.Close()

	var result SplitResult
	for c.Next() {
		pos := c.Count() - 1

		outs, index := train, pos
		if !p.Train().Contains(pos) {
			outs, index = test, pos-p.TrainSize
		}
		key, err := keys.Encode(int64(index))
		if err != nil {
			return result, err
		}
		for i := range set {
			if err := outs[i].Put(key, c.Value(i)); err != nil {
				return result, err
			}
		}

		if p.Train().Contains(pos) {
			result.Train++
		} else {
			result.Test++
		}
		if progress != nil {
			progress(pos + 1)
		}
	}
	if err := c.Err(); err != nil {
		return result, err
	}
	if c.Count() != p.Total {
		return result, errors.Newf("store set changed between passes: counted %d records, wrote %d", p.Total, c.Count())
	}
	return result, nil
}

// WriteShuffled writes, for every member i and position j,
// outs[i].Put(keys[j], member.Get(keys[perm[j]])). Output keys are the input
// keys; the values are permuted identically in every member.
func WriteShuffled(set lockstep.Set, keys [][]byte, perm Permutation, outs []storage.OrderedStore, progress Progress) (int, error) {
	if len(outs) != len(set) {
		return 0, errors.AssertionFailedf("shuffle needs one output per member: %d members, %d outputs", len(set), len(outs))
	}
	if len(perm) != len(keys) {
		return 0, errors.AssertionFailedf("permutation covers %d positions, have %d keys", len(perm), len(keys))
	}
	if err := perm.Validate(); err != nil {
		return 0, err
	}

	for j, key := range keys {
		src := keys[perm[j]]
		for i, m := range set {
			value, err := m.Store.Get(src)
			if err != nil {
				return j, errors.Wrapf(err, "reading %s", m.Name)
			}
			if err := outs[i].Put(key, value); err != nil {
				return j, err
			}
		}
		if progress != nil {
			progress(j + 1)
		}
	}
	return len(keys), nil
}
