package codec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/vela-data/granular/granerr"
)

// msgpackMode configures CBOR to decode maps into map[string]any
// rather than the library's default map[any]any, matching the
// "JSON-like structure" contract of spec.md §4.2 for the "msgpack"
// type. CBOR is the portable self-describing binary encoding the
// teacher's go.mod already depends on; spec.md §9 explicitly licenses
// substituting "any mature equivalent" for msgpack itself. IntDec is
// pinned to IntDecConvertSigned so a decoded integer is always int64
// regardless of sign, rather than varying between uint64 and int64
// depending on whether the encoded value happened to be positive.
var msgpackDecMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any{}),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

func msgpackCodec() *FieldCodec {
	return &FieldCodec{
		TypeString: "msgpack",
		Encode: func(value any) ([]byte, error) {
			b, err := cbor.Marshal(value)
			if err != nil {
				return nil, &granerr.CodecError{Type: "msgpack", Err: fmt.Errorf("marshal: %w", err)}
			}
			return b, nil
		},
		Decode: func(data []byte) (any, error) {
			var out any
			if err := msgpackDecMode.Unmarshal(data, &out); err != nil {
				return nil, &granerr.CodecError{Type: "msgpack", Err: fmt.Errorf("unmarshal: %w", err)}
			}
			return out, nil
		},
	}
}
