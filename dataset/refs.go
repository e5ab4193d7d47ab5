package dataset

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
)

// refEntrySize is the number of bytes one variadic field contributes
// to a reference entry: a (start_record_index, count) pair of u64s
// (spec.md §3).
const refEntrySize = 16

// encodeRefEntry packs the (start, count) pairs for the variadic
// fields of one record, in canonical field order.
func encodeRefEntry(pairs [][2]int) ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	for _, p := range pairs {
		if err := enc.WriteUint64(uint64(p[0]), bin.LE); err != nil {
			return nil, err
		}
		if err := enc.WriteUint64(uint64(p[1]), bin.LE); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// decodeRefEntry unpacks n (start, count) pairs from a reference entry.
func decodeRefEntry(data []byte, n int) ([][2]int, error) {
	dec := bin.NewBinDecoder(data)
	out := make([][2]int, n)
	for i := 0; i < n; i++ {
		start, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return nil, err
		}
		count, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return nil, err
		}
		out[i] = [2]int{int(start), int(count)}
	}
	return out, nil
}
