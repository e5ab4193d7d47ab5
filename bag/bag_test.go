package bag

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bag")

	w, err := Create(path)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(0))
	values := make([][]byte, 100)
	total := int64(0)
	for i := 0; i < 100; i++ {
		size := 4 + rng.Intn(96)
		value := make([]byte, size)
		rng.Read(value)
		idx, err := w.Append(value)
		require.NoError(t, err)
		require.Equal(t, i, idx)
		require.Equal(t, i+1, w.Len())
		values[i] = value
		total += 8 + int64(size)
	}
	total += int64(8 * len(values)) // offset array: one u64 per record
	total += 8                      // trailing count
	require.Equal(t, total, w.Size())
	require.NoError(t, w.Close())

	r, err := Open(path, true)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 100, r.Len())
	for i, want := range values {
		got, err := r.At(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestRangeClipping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bag")

	w, err := Create(path)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		_, err := w.Append([]byte{byte(i)})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	for _, cacheIndex := range []bool{true, false} {
		r, err := Open(path, cacheIndex)
		require.NoError(t, err)

		cases := []struct{ start, end, want int }{
			{0, 0, 0},
			{0, 1, 1},
			{0, 10, 10},
			{3, 5, 2},
			{90, 100, 10},
			{90, 110, 10},
		}
		for _, c := range cases {
			got, err := r.Range(c.start, c.end)
			require.NoError(t, err)
			require.Len(t, got, c.want)
			for i, b := range got {
				require.Equal(t, byte(c.start+i), b[0])
			}
		}
		require.NoError(t, r.Close())
	}
}

func TestIndexOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bag")
	w, err := Create(path)
	require.NoError(t, err)
	_, err = w.Append([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := Open(path, false)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.At(1)
	require.Error(t, err)
	_, err = r.At(-1)
	require.Error(t, err)
}

func TestCorruptionMissingTrailer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bag")
	w, err := Create(path)
	require.NoError(t, err)
	_, err = w.Append([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Truncate away the trailer to simulate a crash mid-write.
	f, err := os.OpenFile(path, os.O_WRONLY, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(4))
	require.NoError(t, f.Close())

	_, err = Open(path, true)
	require.Error(t, err)
}
