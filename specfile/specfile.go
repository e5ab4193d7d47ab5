// Package specfile handles serialization and validation of the
// immutable field-name -> type-string mapping shared by a Dataset and
// its shards (spec.md §3, §6).
package specfile

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/vela-data/granular/codec"
	"github.com/vela-data/granular/granerr"
)

// Spec is the field-name -> type-string mapping. It is immutable for
// the lifetime of a Dataset.
type Spec map[string]string

// Fields returns the field names in canonical (sorted) order, the
// same order used for the on-disk spec.json and for reference entries
// within the reference Bag.
func (s Spec) Fields() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Write serializes spec to path as JSON with keys in sorted order.
func Write(path string, spec Spec) error {
	if len(spec) == 0 {
		return &granerr.TypeError{Reason: "spec must declare at least one field"}
	}
	for name := range spec {
		if name == "" {
			return &granerr.TypeError{Reason: "field names must be non-empty"}
		}
	}

	names := spec.Fields()
	var buf []byte
	buf = append(buf, '{')
	for i, name := range names {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return fmt.Errorf("specfile: marshal field name: %w", err)
		}
		val, err := json.Marshal(spec[name])
		if err != nil {
			return fmt.Errorf("specfile: marshal type string: %w", err)
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	buf = append(buf, '}')

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("specfile: write %s: %w", path, err)
	}
	return nil
}

// Read loads and validates spec.json against reg: every declared
// type-string must resolve, or the spec file is corrupt.
func Read(path string, reg *codec.Registry) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("specfile: read %s: %w", path, err)
	}
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, &granerr.CorruptionError{Path: path, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := Validate(spec, reg); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks that every type-string in spec resolves against reg.
func Validate(spec Spec, reg *codec.Registry) error {
	if len(spec) == 0 {
		return &granerr.CorruptionError{Reason: "spec has no fields"}
	}
	for name, typeString := range spec {
		if _, err := reg.Resolve(typeString); err != nil {
			return &granerr.CorruptionError{Reason: fmt.Sprintf("field %q declares unknown type %q: %v", name, typeString, err)}
		}
	}
	return nil
}

// Equal reports whether two specs declare the same fields and types.
func Equal(a, b Spec) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
