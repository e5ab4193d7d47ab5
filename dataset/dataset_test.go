package dataset

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vela-data/granular/codec"
	"github.com/vela-data/granular/specfile"
)

func TestCreateWritesExpectedFileSet(t *testing.T) {
	dir := t.TempDir()
	reg := codec.New()
	spec := specfile.Spec{"foo": "utf8", "bar": "int(4)", "baz": "utf8[]"}

	w, err := Create(dir, spec, reg)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	require.Equal(t, []string{"bar.bag", "baz.bag", "foo.bag", "refs.bag", "spec.json"}, names)
}

func TestWriteReadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	reg := codec.New()
	spec := specfile.Spec{"foo": "utf8", "bar": "int(4)", "baz": "utf8[]"}

	w, err := Create(dir, spec, reg)
	require.NoError(t, err)

	records := []Record{
		{"foo": "hello", "bar": int64(1), "baz": []any{"a", "bb", "ccc"}},
		{"foo": "world", "bar": int64(-7), "baz": []any{}},
		{"foo": "", "bar": int64(127), "baz": []any{"x"}},
	}
	for i, rec := range records {
		idx, err := w.Append(rec)
		require.NoError(t, err)
		require.Equal(t, i, idx)
	}
	require.Equal(t, 3, w.Len())
	require.NoError(t, w.Close())

	r, err := Open(dir, reg, true, false)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 3, r.Len())
	for i, want := range records {
		got, err := r.At(i)
		require.NoError(t, err)
		require.Equal(t, want["foo"], got["foo"])
		require.Equal(t, want["bar"], got["bar"])
		require.Equal(t, want["baz"], got["baz"])
	}
}

func TestReadSelectProjection(t *testing.T) {
	dir := t.TempDir()
	reg := codec.New()
	spec := specfile.Spec{"foo": "utf8", "baz": "utf8[]"}

	w, err := Create(dir, spec, reg)
	require.NoError(t, err)
	_, err = w.Append(Record{"foo": "hello", "baz": []any{"a", "bb", "ccc", "dddd"}})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := Open(dir, reg, false, true)
	require.NoError(t, err)
	defer r.Close()

	empty, err := r.ReadSelect(0, map[string]any{})
	require.NoError(t, err)
	require.Equal(t, Record{}, empty)

	whole, err := r.ReadSelect(0, map[string]any{"foo": true, "baz": true})
	require.NoError(t, err)
	require.Equal(t, "hello", whole["foo"])
	require.Equal(t, []any{"a", "bb", "ccc", "dddd"}, whole["baz"])

	sliced, err := r.ReadSelect(0, map[string]any{"baz": Range{Start: 1, End: 3}})
	require.NoError(t, err)
	require.Equal(t, []any{"bb", "ccc"}, sliced["baz"])

	clipped, err := r.ReadSelect(0, map[string]any{"baz": Range{Start: 2, End: 100}})
	require.NoError(t, err)
	require.Equal(t, []any{"ccc", "dddd"}, clipped["baz"])

	_, err = r.ReadSelect(0, map[string]any{"foo": Range{Start: 0, End: 1}})
	require.Error(t, err)

	_, err = r.ReadSelect(0, map[string]any{"foo": "not-a-bool"})
	require.Error(t, err)
}

func TestAppendRejectsWrongKeys(t *testing.T) {
	dir := t.TempDir()
	reg := codec.New()
	spec := specfile.Spec{"foo": "utf8"}

	w, err := Create(dir, spec, reg)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Append(Record{"foo": "ok", "extra": 1})
	require.Error(t, err)

	_, err = w.Append(Record{"notfoo": "ok"})
	require.Error(t, err)
}

func TestOpenDetectsMissingFieldBag(t *testing.T) {
	dir := t.TempDir()
	reg := codec.New()
	spec := specfile.Spec{"foo": "utf8"}

	w, err := Create(dir, spec, reg)
	require.NoError(t, err)
	_, err = w.Append(Record{"foo": "a"})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, os.Remove(filepath.Join(dir, "foo.bag")))

	_, err = Open(dir, reg, false, false)
	require.Error(t, err)
}
