package pipeline

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"

	"github.com/ssargent/datumkit/pkg/codec"
	"github.com/ssargent/datumkit/pkg/config"
	"github.com/ssargent/datumkit/pkg/lockstep"
	"github.com/ssargent/datumkit/pkg/metrics"
	"github.com/ssargent/datumkit/pkg/normalize"
	"github.com/ssargent/datumkit/pkg/partition"
	"github.com/ssargent/datumkit/pkg/storage"
)

type harness struct {
	t      *testing.T
	opener storage.Opener
	tools  *Tools
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	cfg := config.DefaultConfig()
	cfg.InfoInterval = 2
	if mutate != nil {
		mutate(cfg)
	}
	opener := storage.NewMemOpener()
	tools, err := New(cfg, opener, metrics.NewMetrics())
	require.NoError(t, err)
	return &harness{t: t, opener: opener, tools: tools}
}

func (h *harness) seed(name string, kvs ...string) {
	h.t.Helper()
	s, err := h.opener.Open(name, storage.OutputOptions(false))
	require.NoError(h.t, err)
	for i := 0; i+1 < len(kvs); i += 2 {
		require.NoError(h.t, s.Put([]byte(kvs[i]), []byte(kvs[i+1])))
	}
	require.NoError(h.t, s.Close())
}

func (h *harness) seedRecords(name string, records map[string]*codec.Record) {
	h.t.Helper()
	s, err := h.opener.Open(name, storage.OutputOptions(false))
	require.NoError(h.t, err)
	for key, r := range records {
		require.NoError(h.t, s.Put([]byte(key), codec.Marshal(r)))
	}
	require.NoError(h.t, s.Close())
}

func (h *harness) dump(name string) [][2]string {
	h.t.Helper()
	s, err := h.opener.Open(name, storage.InputOptions())
	require.NoError(h.t, err)
	defer s.Close()

	it, err := s.NewIterator()
	require.NoError(h.t, err)
	defer it.Close()

	var kvs [][2]string
	for it.First(); it.Valid(); it.Next() {
		kvs = append(kvs, [2]string{string(it.Key()), string(it.Value())})
	}
	require.NoError(h.t, it.Error())
	return kvs
}

func (h *harness) record(name, key string) *codec.Record {
	h.t.Helper()
	s, err := h.opener.Open(name, storage.InputOptions())
	require.NoError(h.t, err)
	defer s.Close()

	value, err := s.Get([]byte(key))
	require.NoError(h.t, err)
	r, err := codec.Unmarshal(value)
	require.NoError(h.t, err)
	return r
}

func (h *harness) exists(name string) bool {
	h.t.Helper()
	s, err := h.opener.Open(name, storage.InputOptions())
	if errors.Is(err, storage.ErrMissing) {
		return false
	}
	require.NoError(h.t, err)
	require.NoError(h.t, s.Close())
	return true
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.KeyWidth = 0
	_, err := New(cfg, storage.NewMemOpener(), nil)
	assert.Error(t, err)
}

func TestDivide_EndToEnd(t *testing.T) {
	h := newHarness(t, nil)
	h.seed("a", "a", "1", "b", "2", "c", "3")
	h.seed("b", "a", "1", "b", "2", "c", "3")

	report, err := h.tools.Divide(2, []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Count)
	assert.Equal(t, 2, report.Train)
	assert.Equal(t, 1, report.Test)
	assert.Equal(t, []string{"a_train", "b_train", "a_test", "b_test"}, report.Outputs)

	for _, name := range []string{"a", "b"} {
		assert.Equal(t, [][2]string{{"00000000", "1"}, {"00000001", "2"}}, h.dump(name+"_train"))
		assert.Equal(t, [][2]string{{"00000000", "3"}}, h.dump(name+"_test"))
	}
}

func TestDivide_TenRecords(t *testing.T) {
	h := newHarness(t, nil)
	var kvs []string
	for i := 0; i < 10; i++ {
		kvs = append(kvs, "k"+string(rune('a'+i)), string(rune('0'+i)))
	}
	h.seed("s", kvs...)

	_, err := h.tools.Divide(7, []string{"s"})
	require.NoError(t, err)

	train := h.dump("s_train")
	require.Len(t, train, 7)
	assert.Equal(t, [2]string{"00000000", "0"}, train[0])
	assert.Equal(t, [2]string{"00000006", "6"}, train[6])

	test := h.dump("s_test")
	require.Len(t, test, 3)
	assert.Equal(t, [2]string{"00000000", "7"}, test[0])
	assert.Equal(t, [2]string{"00000002", "9"}, test[2])
}

func TestDivide_MisalignedStoresWriteNothing(t *testing.T) {
	tests := []struct {
		name string
		b    []string
		kind error
	}{
		{"shorter", []string{"a", "1", "b", "2"}, lockstep.ErrInconsistentState},
		{"different key", []string{"a", "1", "bb", "2", "c", "3"}, lockstep.ErrKeyMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.seed("a", "a", "1", "b", "2", "c", "3")
			h.seed("b", tt.b...)

			_, err := h.tools.Divide(1, []string{"a", "b"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind))

			var verr *lockstep.ValidationError
			assert.True(t, errors.As(err, &verr))

			for _, out := range []string{"a_train", "a_test", "b_train", "b_test"} {
				assert.False(t, h.exists(out), out)
			}
		})
	}
}

func TestDivide_InvalidPartitionWritesNothing(t *testing.T) {
	for _, size := range []int{0, 3, 4} {
		h := newHarness(t, nil)
		h.seed("a", "a", "1", "b", "2", "c", "3")

		_, err := h.tools.Divide(size, []string{"a"})
		assert.True(t, errors.Is(err, partition.ErrInvalidPartition), "train size %d", size)
		assert.False(t, h.exists("a_train"))
	}
}

func TestDivide_KeyWidthOverflow(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.KeyWidth = 1 })
	var kvs []string
	for i := 0; i < 12; i++ {
		kvs = append(kvs, string(rune('a'+i)), "v")
	}
	h.seed("s", kvs...)

	_, err := h.tools.Divide(11, []string{"s"})
	assert.True(t, errors.Is(err, codec.ErrOverflow))
	assert.False(t, h.exists("s_train"))
}

func TestDivide_RefusesExistingOutput(t *testing.T) {
	h := newHarness(t, nil)
	h.seed("a", "a", "1", "b", "2")
	h.seed("a_test", "x", "y")

	_, err := h.tools.Divide(1, []string{"a"})
	assert.True(t, errors.Is(err, storage.ErrExists))
	assert.Equal(t, [][2]string{{"x", "y"}}, h.dump("a_test"))
}

func TestDivide_OverwriteReusesOutput(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Overwrite = true })
	h.seed("a", "a", "1", "b", "2")
	h.seed("a_test", "00000000", "old", "00000003", "stale")

	_, err := h.tools.Divide(1, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"00000000", "2"}}, h.dump("a_test"))
}

func TestDivide_DuplicateInput(t *testing.T) {
	h := newHarness(t, nil)
	h.seed("a", "a", "1", "b", "2")

	_, err := h.tools.Divide(1, []string{"a", "./a"})
	assert.True(t, errors.Is(err, ErrDuplicateStore))
}

func TestVerify(t *testing.T) {
	h := newHarness(t, nil)
	h.seed("a", "a", "1", "b", "2")
	h.seed("b", "a", "x", "b", "y")
	h.seed("c", "a", "x")

	report, err := h.tools.Verify([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count)
	assert.Equal(t, []Phase{PhaseWritten}, report.Skipped)
	assert.Empty(t, report.Outputs)

	_, err = h.tools.Verify([]string{"a", "c"})
	assert.True(t, errors.Is(err, lockstep.ErrInconsistentState))

	_, err = h.tools.Verify([]string{"missing"})
	assert.True(t, errors.Is(err, storage.ErrMissing))
}

func TestShuffle_PreservesAlignment(t *testing.T) {
	h := newHarness(t, nil)
	var images, labels []string
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("k%03d", i)
		images = append(images, key, fmt.Sprintf("img-%d", i))
		labels = append(labels, key, fmt.Sprintf("lbl-%d", i))
	}
	h.seed("images", images...)
	h.seed("labels", labels...)

	report, err := h.tools.Shuffle(7, []string{"images", "labels"})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), report.Seed)
	assert.Equal(t, 50, report.Count)

	in := h.dump("images")
	outImages := h.dump("images_shuffled")
	outLabels := h.dump("labels_shuffled")
	require.Len(t, outImages, 50)
	require.Len(t, outLabels, 50)

	var before, after []string
	moved := 0
	for j := range outImages {
		assert.Equal(t, in[j][0], outImages[j][0], "keys are kept")
		assert.Equal(t, outImages[j][0], outLabels[j][0])
		assert.Equal(t, outImages[j][1][4:], outLabels[j][1][4:], "image and label still correspond")
		if outImages[j][1] != in[j][1] {
			moved++
		}
		before = append(before, in[j][1])
		after = append(after, outImages[j][1])
	}
	sort.Strings(before)
	sort.Strings(after)
	assert.Equal(t, before, after, "shuffle is a bijection")
	assert.Greater(t, moved, 0)
}

func TestShuffle_SeedIsReproducible(t *testing.T) {
	run := func() [][2]string {
		h := newHarness(t, nil)
		h.seed("s", "a", "1", "b", "2", "c", "3", "d", "4", "e", "5")
		_, err := h.tools.Shuffle(99, []string{"s"})
		require.NoError(t, err)
		return h.dump("s_shuffled")
	}
	assert.Equal(t, run(), run())
}

func TestShuffle_RandomSeedIsReported(t *testing.T) {
	h := newHarness(t, nil)
	h.seed("s", "a", "1", "b", "2")

	report, err := h.tools.Shuffle(0, []string{"s"})
	require.NoError(t, err)
	assert.NotZero(t, report.Seed)
}

func poseRecord(label int32, fields ...float32) *codec.Record {
	return &codec.Record{
		Channels:  1,
		Height:    2,
		Width:     2,
		Data:      []byte{1, 2, 3, byte(label)},
		Label:     label,
		FloatData: fields,
	}
}

func TestSplitFields(t *testing.T) {
	h := newHarness(t, nil)
	h.seedRecords("poses", map[string]*codec.Record{
		"00000000": poseRecord(0, 0.5, 1.5, 2.5),
		"00000001": poseRecord(1, 3.5, 4.5, 5.5),
	})

	report, err := h.tools.SplitFields("poses", "out")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count)
	assert.Equal(t, []string{"out_input", "out_target"}, report.Outputs)
	require.NotNil(t, report.Schema)
	assert.Equal(t, 3, report.Schema.FloatFields)

	input := h.record("out_input", "00000001")
	assert.Equal(t, []byte{1, 2, 3, 1}, input.Data)
	assert.Empty(t, input.FloatData)
	assert.Equal(t, codec.Shape{Channels: 1, Height: 2, Width: 2}, input.Shape())

	target := h.record("out_target", "00000001")
	assert.Equal(t, []float32{3.5, 4.5, 5.5}, target.FloatData)
	assert.Equal(t, codec.Shape{Channels: 1, Height: 1, Width: 3}, target.Shape())
	assert.Empty(t, target.Data)
}

func TestSplitFields_NoFloatData(t *testing.T) {
	h := newHarness(t, nil)
	h.seedRecords("plain", map[string]*codec.Record{
		"00000000": {Channels: 1, Height: 1, Width: 1, Data: []byte{9}},
	})

	_, err := h.tools.SplitFields("plain", "out")
	assert.True(t, errors.Is(err, codec.ErrNoFloatData))
	assert.False(t, h.exists("out_input"))
}

func TestSplitFields_EmptyStore(t *testing.T) {
	h := newHarness(t, nil)
	h.seed("empty")

	_, err := h.tools.SplitFields("empty", "out")
	assert.True(t, errors.Is(err, codec.ErrNoFloatData))
}

func TestSplitFields_StrictSchema(t *testing.T) {
	records := map[string]*codec.Record{
		"00000000": poseRecord(0, 1, 2),
		"00000001": {Channels: 3, Height: 2, Width: 2, Data: make([]byte, 12), FloatData: []float32{1, 2}},
	}

	h := newHarness(t, nil)
	h.seedRecords("mixed", records)
	report, err := h.tools.SplitFields("mixed", "lenient")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Mismatches)

	h = newHarness(t, func(c *config.Config) { c.StrictSchema = true })
	h.seedRecords("mixed", records)
	_, err = h.tools.SplitFields("mixed", "strict")
	assert.True(t, errors.Is(err, codec.ErrSchemaMismatch))
}

func TestNormalize_ReportsAndWrites(t *testing.T) {
	h := newHarness(t, nil)
	h.seedRecords("poses", map[string]*codec.Record{
		"00000000": poseRecord(0, 0, 100),
		"00000001": poseRecord(1, 10, 300),
		"00000002": poseRecord(2, 5, 200),
	})
	paramsFile := filepath.Join(t.TempDir(), "params.yaml")

	report, err := h.tools.Normalize(-1, 1, "poses", NormalizeOptions{Output: "poses_norm", ParamsFile: paramsFile})
	require.NoError(t, err)

	require.NotNil(t, report.Stats)
	assert.Equal(t, []float64{0, 100}, report.Stats.Mins)
	assert.Equal(t, []float64{10, 300}, report.Stats.Maxs)
	assert.InDelta(t, 0.2, report.Params.Fields[0].Slope, 1e-9)
	assert.InDelta(t, -1, report.Params.Fields[0].Bias, 1e-9)

	normalized := h.record("poses_norm", "00000002")
	assert.InDeltaSlice(t, []float32{0, 0}, normalized.FloatData, 1e-5)
	assert.Equal(t, int32(2), normalized.Label)

	saved, err := normalize.LoadParams(paramsFile)
	require.NoError(t, err)
	assert.Equal(t, report.Params, saved)

	_, err = h.tools.Denormalize(paramsFile, "poses_norm", "poses_restored")
	require.NoError(t, err)
	for key, want := range map[string][]float32{"00000000": {0, 100}, "00000001": {10, 300}, "00000002": {5, 200}} {
		assert.InDeltaSlice(t, want, h.record("poses_restored", key).FloatData, 1e-4, key)
	}
}

func TestNormalize_WithoutOutputSkipsWrite(t *testing.T) {
	h := newHarness(t, nil)
	h.seedRecords("poses", map[string]*codec.Record{
		"00000000": poseRecord(0, 0),
		"00000001": poseRecord(1, 4),
	})

	report, err := h.tools.Normalize(0, 1, "poses", NormalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Phase{PhaseWritten}, report.Skipped)
	assert.Empty(t, report.Outputs)
	assert.InDelta(t, 0.25, report.Params.Fields[0].Slope, 1e-9)
}

func TestNormalize_Errors(t *testing.T) {
	h := newHarness(t, nil)
	h.seedRecords("constant", map[string]*codec.Record{
		"00000000": poseRecord(0, 3, 1),
		"00000001": poseRecord(1, 3, 2),
	})

	_, err := h.tools.Normalize(1, 1, "constant", NormalizeOptions{})
	assert.True(t, errors.Is(err, normalize.ErrInvalidInterval))

	_, err = h.tools.Normalize(-1, 1, "constant", NormalizeOptions{Output: "out"})
	assert.True(t, errors.Is(err, normalize.ErrDegenerateRange))
	var derr *normalize.DegenerateRangeError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, []int{0}, derr.Fields)
	assert.False(t, h.exists("out"))

	h.seedRecords("plain", map[string]*codec.Record{"00000000": {Channels: 1, Height: 1, Width: 1}})
	_, err = h.tools.Normalize(-1, 1, "plain", NormalizeOptions{})
	assert.True(t, errors.Is(err, codec.ErrNoFloatData))
}

func TestNormalize_LogsExtremesBeforeDegenerateFailure(t *testing.T) {
	var logs bytes.Buffer
	klog.LogToStderr(false)
	klog.SetOutput(&logs)
	defer klog.LogToStderr(true)

	h := newHarness(t, nil)
	h.seedRecords("constant", map[string]*codec.Record{
		"00000000": poseRecord(0, 3, 1),
		"00000001": poseRecord(1, 3, 2),
	})

	_, err := h.tools.Normalize(-1, 1, "constant", NormalizeOptions{})
	require.True(t, errors.Is(err, normalize.ErrDegenerateRange))

	klog.Flush()
	assert.Contains(t, logs.String(), "Field 0: min 3 max 3")
	assert.Contains(t, logs.String(), "Field 1: min 1 max 2")
}

func TestDenormalize_FieldCountMismatch(t *testing.T) {
	h := newHarness(t, nil)
	h.seedRecords("one", map[string]*codec.Record{"00000000": poseRecord(0, 1)})
	paramsFile := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, normalize.SaveParams(&normalize.Params{A: 0, B: 1, Fields: []normalize.FieldParams{
		{Slope: 1}, {Slope: 2},
	}}, paramsFile))

	_, err := h.tools.Denormalize(paramsFile, "one", "out")
	assert.Error(t, err)
	assert.False(t, h.exists("out"))
}
