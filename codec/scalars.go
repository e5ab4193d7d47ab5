package codec

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/vela-data/granular/granerr"
)

func utf8Codec() *FieldCodec {
	return &FieldCodec{
		TypeString: "utf8",
		Encode: func(value any) ([]byte, error) {
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", value)
			}
			return []byte(s), nil
		},
		Decode: func(data []byte) (any, error) {
			return string(data), nil
		},
	}
}

func bytesCodec() *FieldCodec {
	return &FieldCodec{
		TypeString: "bytes",
		Encode: func(value any) ([]byte, error) {
			b, ok := value.([]byte)
			if !ok {
				return nil, fmt.Errorf("expected []byte, got %T", value)
			}
			return b, nil
		},
		Decode: func(data []byte) (any, error) {
			out := make([]byte, len(data))
			copy(out, data)
			return out, nil
		},
	}
}

// intCodec returns the codec for a fixed-width little-endian signed
// integer of n bytes (n in [1, 8]), encoded with the teacher's
// gagliardetto/binary helpers instead of raw bit shifting. typeString
// is the declared spec string ("int" or "int(N)") reported back on
// CodecError so messages match what the caller wrote in their spec.
func intCodec(n int, typeString string) *FieldCodec {
	return &FieldCodec{
		TypeString: typeString,
		Encode: func(value any) ([]byte, error) {
			v, err := toInt64(value)
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			enc := bin.NewBinEncoder(&buf)
			if err := enc.WriteUint64(uint64(v), bin.LE); err != nil {
				return nil, err
			}
			return buf.Bytes()[:n], nil
		},
		Decode: func(data []byte) (any, error) {
			if len(data) != n {
				return nil, fmt.Errorf("expected %d bytes, got %d", n, len(data))
			}
			padded := make([]byte, 8)
			copy(padded, data)
			if n < 8 && data[n-1]&0x80 != 0 {
				for i := n; i < 8; i++ {
					padded[i] = 0xff
				}
			}
			dec := bin.NewBinDecoder(padded)
			u, err := dec.ReadUint64(bin.LE)
			if err != nil {
				return nil, err
			}
			return int64(u), nil
		},
	}
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}

// variadicCodec builds the "T[]" wrapper over a resolved non-variadic
// base FieldCodec. The semantic value for a variadic field is an
// ordered []any of the base type's semantic values; each element is
// appended as its own Bag record (spec.md §4.2).
func variadicCodec(typeString string, base *FieldCodec) *FieldCodec {
	return &FieldCodec{
		TypeString: typeString,
		Variadic:   true,
		Elements: func(value any) ([]any, error) {
			elems, ok := toAnySlice(value)
			if !ok {
				return nil, &granerr.TypeError{Reason: fmt.Sprintf("expected a sequence for variadic field, got %T", value)}
			}
			return elems, nil
		},
		EncodeElem: base.Encode,
		DecodeElem: base.Decode,
		Join: func(elems []any) any {
			return elems
		},
	}
}

// toAnySlice accepts the common concrete sequence shapes callers pass
// for variadic fields ([]string, []int64, []int, []any) and normalizes
// them to []any for uniform element-wise encoding.
func toAnySlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	case []int64:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	case [][]byte:
		out := make([]any, len(v))
		for i, b := range v {
			out[i] = b
		}
		return out, true
	default:
		return nil, false
	}
}
