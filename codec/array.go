package codec

import (
	"fmt"

	"github.com/vela-data/granular/granerr"
)

// Array is the semantic value for the "array(dtype,d1,d2,...)" type:
// a dense N-dimensional numeric tensor stored as raw little-endian
// contiguous element bytes. Dtype and Shape are carried on the value
// so callers can interpret Data; the declared type-string in the spec
// is the source of truth. At encode time only the length of Data is
// checked against it; the value's own Dtype and Shape are not compared.
type Array struct {
	Dtype string
	Shape []int
	Data  []byte
}

// arrayCodec returns the codec for "array(dtype,d1,d2,...)". Encoding
// is an identity copy of Data once its length is validated against
// the declared dtype and shape.
func arrayCodec(dtype string, dims []int) *FieldCodec {
	wantLen := dimsProduct(dims) * dtypeSize(dtype)
	typeString := arrayTypeString(dtype, dims)
	return &FieldCodec{
		TypeString: typeString,
		Encode: func(value any) ([]byte, error) {
			a, ok := value.(Array)
			if !ok {
				if p, ok := value.(*Array); ok {
					a = *p
				} else {
					return nil, fmt.Errorf("expected codec.Array, got %T", value)
				}
			}
			if len(a.Data) != wantLen {
				return nil, &granerr.CodecError{
					Type: typeString,
					Err:  fmt.Errorf("expected %d bytes for shape %v dtype %s, got %d", wantLen, dims, dtype, len(a.Data)),
				}
			}
			out := make([]byte, wantLen)
			copy(out, a.Data)
			return out, nil
		},
		Decode: func(data []byte) (any, error) {
			if len(data) != wantLen {
				return nil, &granerr.CodecError{
					Type: typeString,
					Err:  fmt.Errorf("expected %d bytes, got %d", wantLen, len(data)),
				}
			}
			out := make([]byte, wantLen)
			copy(out, data)
			shape := make([]int, len(dims))
			copy(shape, dims)
			return Array{Dtype: dtype, Shape: shape, Data: out}, nil
		},
	}
}

func arrayTypeString(dtype string, dims []int) string {
	s := "array(" + dtype
	for _, d := range dims {
		s += fmt.Sprintf(",%d", d)
	}
	return s + ")"
}
