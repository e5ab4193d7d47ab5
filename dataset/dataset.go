// Package dataset implements the multi-column record store that
// decomposes a structured record into one Bag per declared field plus
// a reference Bag recording the extents of variadic fields (spec.md
// §3, §4.3).
package dataset

import (
	"fmt"
	"path/filepath"

	logging "github.com/ipfs/go-log/v2"
	"github.com/vela-data/granular/codec"
	"github.com/vela-data/granular/granerr"
	"github.com/vela-data/granular/specfile"
)

var log = logging.Logger("granular/dataset")

// Record is one structured record: a mapping from declared field name
// to its semantic value.
type Record map[string]any

// Range is a half-open integer range used to project a slice of a
// variadic field's elements.
type Range struct {
	Start, End int
}

const specFileName = "spec.json"
const refsFileName = "refs.bag"

func bagFileName(field string) string {
	return field + ".bag"
}

// fieldPlan is the per-field resolved codec plus its position among
// the variadic fields, used to locate its (start, count) pair inside
// a reference entry.
type fieldPlan struct {
	name       string
	codec      *codec.FieldCodec
	variadicAt int // index among variadic fields, -1 if scalar
}

func buildPlan(spec specfile.Spec, reg *codec.Registry) ([]fieldPlan, int, error) {
	names := spec.Fields()
	plans := make([]fieldPlan, 0, len(names))
	variadicCount := 0
	for _, name := range names {
		fc, err := reg.Resolve(spec[name])
		if err != nil {
			return nil, 0, &granerr.CorruptionError{Path: name, Reason: err.Error()}
		}
		at := -1
		if fc.Variadic {
			at = variadicCount
			variadicCount++
		}
		plans = append(plans, fieldPlan{name: name, codec: fc, variadicAt: at})
	}
	return plans, variadicCount, nil
}

func validateRecordKeys(record Record, plans []fieldPlan) error {
	if len(record) != len(plans) {
		return &granerr.TypeError{Reason: fmt.Sprintf("record has %d fields, spec declares %d", len(record), len(plans))}
	}
	for _, p := range plans {
		if _, ok := record[p.name]; !ok {
			return &granerr.TypeError{Field: p.name, Reason: "missing from record"}
		}
	}
	return nil
}

func fieldPath(dir, field string) string {
	return filepath.Join(dir, bagFileName(field))
}
