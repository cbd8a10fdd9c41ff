package iteration

import (
	"errors"
	"iter"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/jobgrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(n int64) *int64 { return &n }

type fakeFiles map[string]any

func (f fakeFiles) LoadFile(path string) (any, error) {
	v, ok := f[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return v, nil
}

func collect(t *testing.T, seq iter.Seq[Item]) []any {
	t.Helper()
	var out []any
	for item := range seq {
		out = append(out, item.Value)
	}
	return out
}

func TestResolve_Range(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		r    config.Range
		want []any
	}{
		{"ascending", config.Range{From: ptr(0), To: 10, By: ptr(3)}, []any{int64(0), int64(3), int64(6), int64(9)}},
		{"descending", config.Range{From: ptr(10), To: 0, By: ptr(-3)}, []any{int64(10), int64(7), int64(4), int64(1)}},
		{"defaults", config.Range{To: 5}, []any{int64(0), int64(1), int64(2), int64(3), int64(4)}},
		{"empty", config.Range{From: ptr(3), To: 3}, nil},
		{"step past max", config.Range{To: math.MaxInt64, By: ptr(math.MaxInt64/2 + 1)}, []any{int64(0), int64(math.MaxInt64/2 + 1)}},
		{"step past min", config.Range{To: math.MinInt64, By: ptr(math.MinInt64/2 - 1)}, []any{int64(0), int64(math.MinInt64/2 - 1)}},
		{"up to max", config.Range{From: ptr(math.MaxInt64 - 2), To: math.MaxInt64}, []any{int64(math.MaxInt64 - 2), int64(math.MaxInt64 - 1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			seq, err := Resolve(tc.r, nil)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, collect(t, seq)); diff != "" {
				t.Errorf("range mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_MalformedRange(t *testing.T) {
	t.Parallel()

	_, err := Resolve(config.Range{To: 10, By: ptr(0)}, nil)
	assert.ErrorIs(t, err, config.ErrMalformedRange)

	_, err = Resolve(config.Range{From: ptr(0), To: 10, By: ptr(-1)}, nil)
	assert.ErrorIs(t, err, config.ErrMalformedRange)
}

func TestResolve_ValueList(t *testing.T) {
	t.Parallel()

	seq, err := Resolve(config.ValueList{Values: []any{1, 2, 3}}, nil)

	require.NoError(t, err)
	var items []Item
	for item := range seq {
		items = append(items, item)
	}
	assert.Equal(t, []Item{
		{Index: 0, Value: 1, HasValue: true},
		{Index: 1, Value: 2, HasValue: true},
		{Index: 2, Value: 3, HasValue: true},
	}, items)
}

func TestResolve_SingleRun(t *testing.T) {
	t.Parallel()

	for _, it := range []config.Iteration{config.SingleRun{}, nil} {
		seq, err := Resolve(it, nil)
		require.NoError(t, err)

		var items []Item
		for item := range seq {
			items = append(items, item)
		}
		require.Len(t, items, 1)
		assert.False(t, items[0].HasValue)
		assert.Nil(t, items[0].Value)
	}
}

func TestResolve_InfiniteLoopStopsWithConsumer(t *testing.T) {
	t.Parallel()

	seq, err := Resolve(config.InfiniteLoop{}, nil)
	require.NoError(t, err)

	var got []any
	for item := range seq {
		got = append(got, item.Value)
		if len(got) == 5 {
			break
		}
	}
	assert.Equal(t, []any{int64(0), int64(1), int64(2), int64(3), int64(4)}, got)
}

func TestResolve_ExternalFile(t *testing.T) {
	t.Parallel()

	files := fakeFiles{
		"/v.json":   []any{"x", map[string]any{"k": "v"}},
		"/obj.json": map[string]any{"k": "v"},
	}

	seq, err := Resolve(config.ExternalFile{Path: "/v.json"}, files)
	require.NoError(t, err)
	assert.Equal(t, []any{"x", map[string]any{"k": "v"}}, collect(t, seq))

	_, err = Resolve(config.ExternalFile{Path: "/obj.json"}, files)
	assert.ErrorIs(t, err, config.ErrMalformedIterationFile)

	_, err = Resolve(config.ExternalFile{Path: "/missing.json"}, files)
	assert.ErrorIs(t, err, config.ErrMalformedIterationFile)
}

func TestResolve_IsLazy(t *testing.T) {
	t.Parallel()

	seq, err := Resolve(config.Range{To: 1_000_000_000}, nil)
	require.NoError(t, err)

	count := 0
	for range seq {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}
