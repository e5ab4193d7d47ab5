package shard

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vela-data/granular/codec"
	"github.com/vela-data/granular/dataset"
	"github.com/vela-data/granular/specfile"
)

func TestShardSizeOneProducesOneShardPerRecord(t *testing.T) {
	root := t.TempDir()
	reg := codec.New()
	spec := specfile.Spec{"bar": "int(8)"}

	w, err := Create(root, spec, reg, WithShardSize(1))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := w.Append(dataset.Record{"bar": int64(i)})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r, err := Open(root, reg)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, 10, r.Shards())
	require.Equal(t, 10, r.Len())
}

func TestShardSizeLargeProducesOneShard(t *testing.T) {
	root := t.TempDir()
	reg := codec.New()
	spec := specfile.Spec{"bar": "int(8)"}

	w, err := Create(root, spec, reg, WithShardSize(10000))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := w.Append(dataset.Record{"bar": int64(i)})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r, err := Open(root, reg)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, 1, r.Shards())
	require.Equal(t, 10, r.Len())
}

func TestShardRoundtripAndProjection(t *testing.T) {
	root := t.TempDir()
	reg := codec.New()
	spec := specfile.Spec{"foo": "utf8", "baz": "utf8[]"}

	w, err := Create(root, spec, reg, WithShardLength(3))
	require.NoError(t, err)
	n := 10
	for i := 0; i < n; i++ {
		words := make([]any, i)
		for j := 0; j < i; j++ {
			words[j] = "word"
		}
		_, err := w.Append(dataset.Record{"foo": "rec", "baz": words})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r, err := Open(root, reg)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, n, r.Len())
	require.Greater(t, r.Shards(), 1)

	rec, err := r.At(5)
	require.NoError(t, err)
	require.Equal(t, "rec", rec["foo"])
	require.Len(t, rec["baz"], 5)

	proj, err := r.ReadSelect(5, map[string]any{"foo": true})
	require.NoError(t, err)
	require.Equal(t, dataset.Record{"foo": "rec"}, proj)
}

func TestDistributedWritersInterleave(t *testing.T) {
	root := t.TempDir()
	reg := codec.New()
	spec := specfile.Spec{"bar": "int(8)"}

	nworkers := 3
	total := 10
	for worker := 0; worker < nworkers; worker++ {
		w, err := Create(root, spec, reg, WithShardStart(worker), WithShardStep(nworkers))
		require.NoError(t, err)
		for i := worker; i < total; i += nworkers {
			_, err := w.Append(dataset.Record{"bar": int64(i)})
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())
	}

	r, err := Open(root, reg)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, total, r.Len())

	got := make([]int64, r.Len())
	for i := 0; i < r.Len(); i++ {
		rec, err := r.At(i)
		require.NoError(t, err)
		got[i] = rec["bar"].(int64)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := make([]int64, total)
	for i := range want {
		want[i] = int64(i)
	}
	require.Equal(t, want, got)
}

func TestShardDirNamesAreSixDigitZeroPadded(t *testing.T) {
	root := t.TempDir()
	reg := codec.New()
	spec := specfile.Spec{"bar": "int(8)"}

	w, err := Create(root, spec, reg)
	require.NoError(t, err)
	_, err = w.Append(dataset.Record{"bar": int64(1)})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.DirExists(t, filepath.Join(root, "000000"))
}

func TestMismatchedShardSpecsRejected(t *testing.T) {
	root := t.TempDir()
	reg := codec.New()

	w0, err := dataset.Create(filepath.Join(root, "000000"), specfile.Spec{"bar": "int(8)"}, reg)
	require.NoError(t, err)
	require.NoError(t, w0.Close())

	w1, err := dataset.Create(filepath.Join(root, "000001"), specfile.Spec{"bar": "utf8"}, reg)
	require.NoError(t, err)
	require.NoError(t, w1.Close())

	_, err = Open(root, reg)
	require.Error(t, err)
}
