package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vela-data/granular/bag"
	"github.com/vela-data/granular/codec"
	"github.com/vela-data/granular/granerr"
	"github.com/vela-data/granular/specfile"
)

// Writer appends structured records to a directory containing one Bag
// per field plus the reference Bag and spec.json (spec.md §4.3). A
// Writer exclusively owns one bag.Writer per field plus the reference
// bag.Writer.
type Writer struct {
	dir    string
	spec   specfile.Spec
	plans  []fieldPlan
	nVar   int
	fields map[string]*bag.Writer
	refs   *bag.Writer
	length int
}

// Create opens dir for writing. The directory is created if absent;
// spec.json is written immediately with field names in sorted order
// (spec.md §4.3: "insertion order is not preserved — this is
// intentional").
func Create(dir string, spec specfile.Spec, reg *codec.Registry) (*Writer, error) {
	if err := specfile.Validate(spec, reg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("dataset: mkdir %s: %w", dir, err)
	}
	if err := specfile.Write(filepath.Join(dir, specFileName), spec); err != nil {
		return nil, err
	}

	plans, nVar, err := buildPlan(spec, reg)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]*bag.Writer, len(plans))
	for _, p := range plans {
		w, err := bag.Create(fieldPath(dir, p.name))
		if err != nil {
			closeAll(fields, nil)
			return nil, err
		}
		fields[p.name] = w
	}
	refs, err := bag.Create(filepath.Join(dir, refsFileName))
	if err != nil {
		closeAll(fields, nil)
		return nil, err
	}

	log.Debugw("created dataset", "dir", dir, "fields", len(plans))
	return &Writer{dir: dir, spec: spec, plans: plans, nVar: nVar, fields: fields, refs: refs}, nil
}

func closeAll(fields map[string]*bag.Writer, refs *bag.Writer) {
	for _, w := range fields {
		w.Close()
	}
	if refs != nil {
		refs.Close()
	}
}

// Append validates record against the spec, encodes each field, and
// returns the record's 0-based index.
func (w *Writer) Append(record Record) (int, error) {
	if err := validateRecordKeys(record, w.plans); err != nil {
		return 0, err
	}

	pairs := make([][2]int, 0, w.nVar)
	for _, p := range w.plans {
		value := record[p.name]
		writer := w.fields[p.name]

		if p.codec.Variadic {
			elems, err := p.codec.Elements(value)
			if err != nil {
				return 0, fmt.Errorf("dataset: field %q: %w", p.name, err)
			}
			start := writer.Len()
			for _, elem := range elems {
				b, err := p.codec.EncodeElem(elem)
				if err != nil {
					return 0, &granerr.CodecError{Field: p.name, Type: p.codec.TypeString, Err: err}
				}
				if _, err := writer.Append(b); err != nil {
					return 0, err
				}
			}
			pairs = append(pairs, [2]int{start, len(elems)})
			continue
		}

		b, err := p.codec.Encode(value)
		if err != nil {
			return 0, &granerr.CodecError{Field: p.name, Type: p.codec.TypeString, Err: err}
		}
		if _, err := writer.Append(b); err != nil {
			return 0, err
		}
	}

	entry, err := encodeRefEntry(pairs)
	if err != nil {
		return 0, fmt.Errorf("dataset: encode reference entry: %w", err)
	}
	index, err := w.refs.Append(entry)
	if err != nil {
		return 0, err
	}
	w.length = index + 1
	return index, nil
}

// Len returns the number of records appended so far.
func (w *Writer) Len() int { return w.length }

// Size returns the cumulative size of all contained Bags, including
// the reference Bag.
func (w *Writer) Size() int64 {
	total := w.refs.Size()
	for _, fw := range w.fields {
		total += fw.Size()
	}
	return total
}

// Spec returns the dataset's field spec.
func (w *Writer) Spec() specfile.Spec { return w.spec }

// Dir returns the dataset's directory.
func (w *Writer) Dir() string { return w.dir }

// Close finalizes every contained Bag. It is safe to call after a
// failed Append: all file handles are still released.
func (w *Writer) Close() error {
	var firstErr error
	for _, fw := range w.fields {
		if err := fw.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := w.refs.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	log.Debugw("closed dataset", "dir", w.dir, "records", w.length)
	return firstErr
}
