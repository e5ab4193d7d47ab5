// Package codec implements the dispatch registry that maps declared
// field type-strings to encoder and decoder functions, per spec.md
// §4.2. The registry is an immutable value built once at startup and
// passed explicitly into dataset/shard open calls, rather than the
// process-global mutable table of the original implementation.
package codec

import (
	"fmt"
	"sync"

	"github.com/vela-data/granular/granerr"
)

// FieldCodec is the behavior registered for one declared type-string.
// Scalar fields use Encode/Decode directly on the whole semantic
// value. Variadic fields ("T[]") decompose the semantic value into an
// ordered list of elements, each encoded/decoded independently as its
// own Bag record, then rejoined on read.
type FieldCodec struct {
	TypeString string
	Variadic   bool

	// Scalar contract.
	Encode func(value any) ([]byte, error)
	Decode func(data []byte) (any, error)

	// Variadic contract.
	Elements   func(value any) ([]any, error)
	EncodeElem func(elem any) ([]byte, error)
	DecodeElem func(data []byte) (any, error)
	Join       func(elems []any) any
}

// Registry resolves type-strings to FieldCodecs. It is safe for
// concurrent use by multiple readers/writers once built, since
// resolved codecs are cached behind a lock and never mutated after
// being placed in the cache.
type Registry struct {
	mu    sync.Mutex
	cache map[string]*FieldCodec
}

// New builds a Registry with the built-in codecs of spec.md §4.2
// registered: utf8, utf8[], bytes, int, int(N), int[], array(...),
// msgpack, jpg, png, mp4, and generic T[] wrapping over any
// non-variadic registered base type.
func New() *Registry {
	return &Registry{cache: make(map[string]*FieldCodec)}
}

// Resolve returns the FieldCodec for typeString, building and caching
// it on first use. An unrecognized type-string is a CorruptionError,
// matching spec.md §4.3's "unknown types are rejected at open time".
func (r *Registry) Resolve(typeString string) (*FieldCodec, error) {
	r.mu.Lock()
	fc, ok := r.cache[typeString]
	r.mu.Unlock()
	if ok {
		return fc, nil
	}
	// build may call Resolve again for a "T[]" base type, so the lock
	// is not held while building.
	fc, err := build(typeString, r)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[typeString]; ok {
		return cached, nil
	}
	r.cache[typeString] = fc
	return fc, nil
}

func build(typeString string, r *Registry) (*FieldCodec, error) {
	switch {
	case typeString == "utf8":
		return utf8Codec(), nil
	case typeString == "bytes":
		return bytesCodec(), nil
	case typeString == "msgpack":
		return msgpackCodec(), nil
	case typeString == "jpg":
		return imageCodec("jpg"), nil
	case typeString == "png":
		return imageCodec("png"), nil
	case typeString == "mp4":
		return mp4Codec(), nil
	case typeString == "int":
		return intCodec(8, "int"), nil
	}

	if n, ok := parseIntN(typeString); ok {
		return intCodec(n, typeString), nil
	}
	if dtype, dims, ok := parseArray(typeString); ok {
		return arrayCodec(dtype, dims), nil
	}
	if base, ok := parseVariadic(typeString); ok {
		baseCodec, err := r.Resolve(base)
		if err != nil {
			return nil, err
		}
		if baseCodec.Variadic {
			return nil, &granerr.CorruptionError{
				Path:   typeString,
				Reason: "nested variadic types are not supported",
			}
		}
		return variadicCodec(typeString, baseCodec), nil
	}

	return nil, &granerr.CorruptionError{
		Path:   typeString,
		Reason: fmt.Sprintf("unrecognized type-string %q", typeString),
	}
}
