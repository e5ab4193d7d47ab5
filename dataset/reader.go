package dataset

import (
	"fmt"
	"path/filepath"

	"github.com/vela-data/granular/bag"
	"github.com/vela-data/granular/codec"
	"github.com/vela-data/granular/granerr"
	"github.com/vela-data/granular/specfile"
)

// Reader gives random-access read-only access to a Dataset directory.
// A Reader's contained Bag readers are not safe for concurrent use by
// multiple goroutines against the same handle.
type Reader struct {
	dir    string
	spec   specfile.Spec
	plans  []fieldPlan
	nVar   int
	fields map[string]*bag.Reader
	refs   *bag.Reader

	cacheRefs bool
	refCache  [][][2]int
}

// Open opens an existing Dataset directory for reading. cacheIndex is
// forwarded to every contained Bag reader. cacheRefs, if true, decodes
// and holds the entire reference Bag in memory at open time instead
// of re-reading it per access (spec.md §4.3 caching flags).
func Open(dir string, reg *codec.Registry, cacheIndex, cacheRefs bool) (*Reader, error) {
	spec, err := specfile.Read(filepath.Join(dir, specFileName), reg)
	if err != nil {
		return nil, err
	}
	plans, nVar, err := buildPlan(spec, reg)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]*bag.Reader, len(plans))
	for _, p := range plans {
		r, err := bag.Open(fieldPath(dir, p.name), cacheIndex)
		if err != nil {
			closeReaders(fields, nil)
			return nil, err
		}
		fields[p.name] = r
	}
	refs, err := bag.Open(filepath.Join(dir, refsFileName), cacheIndex)
	if err != nil {
		closeReaders(fields, nil)
		return nil, err
	}

	for _, p := range plans {
		if fields[p.name].Len() != refs.Len() {
			closeReaders(fields, refs)
			return nil, &granerr.CorruptionError{
				Path:   dir,
				Reason: fmt.Sprintf("field %q has %d records but reference bag has %d", p.name, fields[p.name].Len(), refs.Len()),
			}
		}
	}

	r := &Reader{
		dir: dir, spec: spec, plans: plans, nVar: nVar,
		fields: fields, refs: refs, cacheRefs: cacheRefs,
	}
	if cacheRefs {
		cache := make([][][2]int, refs.Len())
		for i := 0; i < refs.Len(); i++ {
			entry, err := refs.At(i)
			if err != nil {
				closeReaders(fields, refs)
				return nil, err
			}
			pairs, err := decodeRefEntry(entry, nVar)
			if err != nil {
				closeReaders(fields, refs)
				return nil, &granerr.CorruptionError{Path: dir, Reason: err.Error()}
			}
			cache[i] = pairs
		}
		r.refCache = cache
	}
	return r, nil
}

func closeReaders(fields map[string]*bag.Reader, refs *bag.Reader) {
	for _, r := range fields {
		r.Close()
	}
	if refs != nil {
		refs.Close()
	}
}

func (r *Reader) entryAt(index int) ([][2]int, error) {
	if r.cacheRefs {
		return r.refCache[index], nil
	}
	entry, err := r.refs.At(index)
	if err != nil {
		return nil, err
	}
	pairs, err := decodeRefEntry(entry, r.nVar)
	if err != nil {
		return nil, &granerr.CorruptionError{Path: r.dir, Reason: err.Error()}
	}
	return pairs, nil
}

// Len returns the number of records in the dataset.
func (r *Reader) Len() int { return r.refs.Len() }

// Size returns the sum of all contained Bag sizes.
func (r *Reader) Size() int64 {
	total := r.refs.Size()
	for _, fr := range r.fields {
		total += fr.Size()
	}
	return total
}

// Spec returns the dataset's field spec.
func (r *Reader) Spec() specfile.Spec { return r.spec }

// At reads and decodes the full record at index.
func (r *Reader) At(index int) (Record, error) {
	if index < 0 || index >= r.Len() {
		return nil, &granerr.IndexError{Index: index, Len: r.Len()}
	}
	pairs, err := r.entryAt(index)
	if err != nil {
		return nil, err
	}

	out := make(Record, len(r.plans))
	for _, p := range r.plans {
		v, err := r.readField(index, p, pairs, nil)
		if err != nil {
			return nil, err
		}
		out[p.name] = v
	}
	return out, nil
}

// ReadSelect reads a projection of record index. selection maps field
// name to either a truthy value (bool true means "return the whole
// field") or a Range (valid only for variadic fields, clipped to the
// field's element count). Fields not present in selection are omitted
// from the result.
func (r *Reader) ReadSelect(index int, selection map[string]any) (Record, error) {
	if index < 0 || index >= r.Len() {
		return nil, &granerr.IndexError{Index: index, Len: r.Len()}
	}
	pairs, err := r.entryAt(index)
	if err != nil {
		return nil, err
	}

	out := make(Record, len(selection))
	for _, p := range r.plans {
		proj, ok := selection[p.name]
		if !ok {
			continue
		}
		v, err := r.readField(index, p, pairs, proj)
		if err != nil {
			return nil, err
		}
		out[p.name] = v
	}
	return out, nil
}

// readField decodes field p at record index. proj is nil for a full
// read (used by At); for ReadSelect it is the caller's projection
// value for this field.
func (r *Reader) readField(index int, p fieldPlan, pairs [][2]int, proj any) (any, error) {
	reader := r.fields[p.name]

	if !p.codec.Variadic {
		if proj != nil {
			truthy, ok := proj.(bool)
			if !ok || !truthy {
				return nil, &granerr.TypeError{Field: p.name, Reason: "scalar fields only accept a truthy projection value"}
			}
		}
		b, err := reader.At(index)
		if err != nil {
			return nil, err
		}
		v, err := p.codec.Decode(b)
		if err != nil {
			return nil, &granerr.CodecError{Field: p.name, Type: p.codec.TypeString, Err: err}
		}
		return v, nil
	}

	start, count := pairs[p.variadicAt][0], pairs[p.variadicAt][1]
	if start < 0 || count < 0 || start+count > reader.Len() {
		return nil, &granerr.CorruptionError{
			Path:   r.dir,
			Reason: fmt.Sprintf("reference entry for field %q at record %d points past the end of its bag", p.name, index),
		}
	}
	reqStart, reqEnd := 0, count
	if proj != nil {
		switch v := proj.(type) {
		case bool:
			if !v {
				return nil, &granerr.TypeError{Field: p.name, Reason: "falsy projection on variadic field"}
			}
		case Range:
			reqStart, reqEnd = v.Start, v.End
			if reqStart < 0 {
				reqStart = 0
			}
			if reqEnd > count {
				reqEnd = count
			}
		default:
			return nil, &granerr.TypeError{Field: p.name, Reason: fmt.Sprintf("unsupported projection type %T", proj)}
		}
	}
	if reqEnd < reqStart {
		reqEnd = reqStart
	}

	raws, err := reader.Range(start+reqStart, start+reqEnd)
	if err != nil {
		return nil, err
	}
	elems := make([]any, len(raws))
	for i, b := range raws {
		v, err := p.codec.DecodeElem(b)
		if err != nil {
			return nil, &granerr.CodecError{Field: p.name, Type: p.codec.TypeString, Err: err}
		}
		elems[i] = v
	}
	return p.codec.Join(elems), nil
}

// Close releases every contained Bag reader.
func (r *Reader) Close() error {
	var firstErr error
	for _, fr := range r.fields {
		if err := fr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := r.refs.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
