package partition

import (
	"fmt"
	"sort"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/datumkit/pkg/codec"
	"github.com/ssargent/datumkit/pkg/lockstep"
	"github.com/ssargent/datumkit/pkg/storage"
)

type fixture struct {
	t      *testing.T
	opener storage.Opener
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, opener: storage.NewMemOpener()}
}

func (f *fixture) seed(name string, kvs ...string) {
	f.t.Helper()
	s, err := f.opener.Open(name, storage.OutputOptions(false))
	require.NoError(f.t, err)
	for i := 0; i+1 < len(kvs); i += 2 {
		require.NoError(f.t, s.Put([]byte(kvs[i]), []byte(kvs[i+1])))
	}
	require.NoError(f.t, s.Close())
}

func (f *fixture) set(names ...string) lockstep.Set {
	f.t.Helper()
	var set lockstep.Set
	for _, name := range names {
		s, err := f.opener.Open(name, storage.InputOptions())
		require.NoError(f.t, err)
		f.t.Cleanup(func() { s.Close() })
		set = append(set, lockstep.Member{Name: name, Store: s})
	}
	return set
}

func (f *fixture) outputs(names ...string) []storage.OrderedStore {
	f.t.Helper()
	var outs []storage.OrderedStore
	for _, name := range names {
		s, err := f.opener.Open(name, storage.OutputOptions(false))
		require.NoError(f.t, err)
		outs = append(outs, s)
	}
	return outs
}

// dump closes the given outputs and returns the contents of each as ordered
// key/value pairs.
func (f *fixture) dump(outs []storage.OrderedStore) [][][2]string {
	f.t.Helper()
	var all [][][2]string
	for _, out := range outs {
		path := out.Path()
		require.NoError(f.t, out.Close())

		s, err := f.opener.Open(path, storage.InputOptions())
		require.NoError(f.t, err)
		it, err := s.NewIterator()
		require.NoError(f.t, err)
		var kvs [][2]string
		for it.First(); it.Valid(); it.Next() {
			kvs = append(kvs, [2]string{string(it.Key()), string(it.Value())})
		}
		require.NoError(f.t, it.Close())
		require.NoError(f.t, s.Close())
		all = append(all, kvs)
	}
	return all
}

func TestWriteSplit_TwoStores(t *testing.T) {
	f := newFixture(t)
	f.seed("images", "a", "1", "b", "2", "c", "3")
	f.seed("labels", "a", "1", "b", "2", "c", "3")
	set := f.set("images", "labels")

	total, err := set.Count()
	require.NoError(t, err)
	p, err := Split(total, 2)
	require.NoError(t, err)

	train := f.outputs("images_train", "labels_train")
	test := f.outputs("images_test", "labels_test")

	result, err := WriteSplit(set, p, codec.KeyCodec{Width: codec.DefaultKeyWidth}, train, test, nil)
	require.NoError(t, err)
	assert.Equal(t, SplitResult{Train: 2, Test: 1}, result)

	wantTrain := [][2]string{{"00000000", "1"}, {"00000001", "2"}}
	wantTest := [][2]string{{"00000000", "3"}}
	for _, got := range f.dump(train) {
		assert.Equal(t, wantTrain, got)
	}
	for _, got := range f.dump(test) {
		assert.Equal(t, wantTest, got)
	}
}

func TestWriteSplit_TenSeven(t *testing.T) {
	f := newFixture(t)
	var kvs []string
	for i := 0; i < 10; i++ {
		kvs = append(kvs, fmt.Sprintf("src-%02d", i), fmt.Sprintf("v%d", i))
	}
	f.seed("data", kvs...)
	set := f.set("data")

	p, err := Split(10, 7)
	require.NoError(t, err)

	var done []int
	train, test := f.outputs("data_train"), f.outputs("data_test")
	_, err = WriteSplit(set, p, codec.KeyCodec{Width: 8}, train, test, func(n int) { done = append(done, n) })
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, done)

	gotTrain := f.dump(train)[0]
	require.Len(t, gotTrain, 7)
	for i, kv := range gotTrain {
		assert.Equal(t, fmt.Sprintf("%08d", i), kv[0])
		assert.Equal(t, fmt.Sprintf("v%d", i), kv[1])
	}

	gotTest := f.dump(test)[0]
	assert.Equal(t, [][2]string{{"00000000", "v7"}, {"00000001", "v8"}, {"00000002", "v9"}}, gotTest)
}

func TestWriteSplit_OverflowBeforeWriting(t *testing.T) {
	f := newFixture(t)
	var kvs []string
	for i := 0; i < 25; i++ {
		kvs = append(kvs, fmt.Sprintf("%03d", i), "x")
	}
	f.seed("data", kvs...)
	set := f.set("data")

	p, err := Split(25, 12)
	require.NoError(t, err)

	train, test := f.outputs("data_train"), f.outputs("data_test")
	_, err = WriteSplit(set, p, codec.KeyCodec{Width: 1}, train, test, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrOverflow))

	assert.Empty(t, f.dump(train)[0])
	assert.Empty(t, f.dump(test)[0])
}

func TestWriteShuffled_BijectionAndAlignment(t *testing.T) {
	f := newFixture(t)
	var images, labels []string
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("%08d", i)
		images = append(images, key, fmt.Sprintf("image-%d", i))
		labels = append(labels, key, fmt.Sprintf("label-%d", i))
	}
	f.seed("images", images...)
	f.seed("labels", labels...)
	set := f.set("images", "labels")

	keys, err := set.Keys()
	require.NoError(t, err)
	perm := NewPermutation(len(keys), NewRand(99))

	outs := f.outputs("images_shuffled", "labels_shuffled")
	n, err := WriteShuffled(set, keys, perm, outs, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	got := f.dump(outs)
	gotImages, gotLabels := got[0], got[1]
	require.Len(t, gotImages, 50)
	require.Len(t, gotLabels, 50)

	var inValues, outValues []string
	moved := 0
	for j := range gotImages {
		// keys are unchanged
		assert.Equal(t, string(keys[j]), gotImages[j][0])
		assert.Equal(t, string(keys[j]), gotLabels[j][0])

		// correspondence survives the shuffle
		var imageIdx, labelIdx int
		_, err := fmt.Sscanf(gotImages[j][1], "image-%d", &imageIdx)
		require.NoError(t, err)
		_, err = fmt.Sscanf(gotLabels[j][1], "label-%d", &labelIdx)
		require.NoError(t, err)
		assert.Equal(t, imageIdx, labelIdx)
		assert.Equal(t, perm[j], imageIdx)
		if imageIdx != j {
			moved++
		}

		inValues = append(inValues, fmt.Sprintf("image-%d", j))
		outValues = append(outValues, gotImages[j][1])
	}
	assert.Greater(t, moved, 0)

	// multiset of values is preserved
	sort.Strings(inValues)
	sort.Strings(outValues)
	assert.Equal(t, inValues, outValues)
}

func TestWriteShuffled_RejectsBadPermutation(t *testing.T) {
	f := newFixture(t)
	f.seed("data", "a", "1", "b", "2")
	set := f.set("data")
	keys, err := set.Keys()
	require.NoError(t, err)

	outs := f.outputs("data_shuffled")
	_, err = WriteShuffled(set, keys, Permutation{0, 0}, outs, nil)
	assert.Error(t, err)
	_, err = WriteShuffled(set, keys, Permutation{0}, outs, nil)
	assert.Error(t, err)
	require.NoError(t, storage.CloseAll(outs...))
}
