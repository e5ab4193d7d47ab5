package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarRoundtrips(t *testing.T) {
	reg := New()

	utf8, err := reg.Resolve("utf8")
	require.NoError(t, err)
	b, err := utf8.Encode("hello world")
	require.NoError(t, err)
	v, err := utf8.Decode(b)
	require.NoError(t, err)
	require.Equal(t, "hello world", v)

	for _, n := range []int{1, 4, 8} {
		typeString := "int"
		if n != 8 {
			typeString = intTypeString(n)
		}
		fc, err := reg.Resolve(typeString)
		require.NoError(t, err)
		values := []int64{0, 1, -1, 127, -128}
		if n > 1 {
			// 1000 does not fit in a signed 1-byte integer.
			values = append(values, 1000)
		}
		for _, want := range values {
			b, err := fc.Encode(int(want))
			require.NoError(t, err)
			require.Len(t, b, n)
			got, err := fc.Decode(b)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
	}
}

func intTypeString(n int) string {
	return "int(" + itoa(n) + ")"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestVariadicUtf8(t *testing.T) {
	reg := New()
	fc, err := reg.Resolve("utf8[]")
	require.NoError(t, err)
	require.True(t, fc.Variadic)

	elems, err := fc.Elements([]string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, elems, 3)

	var encoded [][]byte
	for _, e := range elems {
		b, err := fc.EncodeElem(e)
		require.NoError(t, err)
		encoded = append(encoded, b)
	}
	var decoded []any
	for _, b := range encoded {
		v, err := fc.DecodeElem(b)
		require.NoError(t, err)
		decoded = append(decoded, v)
	}
	require.Equal(t, []any{"a", "bb", "ccc"}, fc.Join(decoded))
}

func TestArrayCodec(t *testing.T) {
	reg := New()
	fc, err := reg.Resolve("array(float32,10,4)")
	require.NoError(t, err)

	data := make([]byte, 10*4*4)
	for i := range data {
		data[i] = byte(i)
	}
	b, err := fc.Encode(Array{Dtype: "float32", Shape: []int{10, 4}, Data: data})
	require.NoError(t, err)
	require.Len(t, b, len(data))

	v, err := fc.Decode(b)
	require.NoError(t, err)
	arr := v.(Array)
	require.Equal(t, []int{10, 4}, arr.Shape)
	require.Equal(t, data, arr.Data)
}

func TestUnknownType(t *testing.T) {
	reg := New()
	_, err := reg.Resolve("notatype")
	require.Error(t, err)
}

func TestMsgpackRoundtrip(t *testing.T) {
	reg := New()
	fc, err := reg.Resolve("msgpack")
	require.NoError(t, err)

	in := map[string]any{"foo": "bar", "baz": uint64(12)}
	b, err := fc.Encode(in)
	require.NoError(t, err)
	out, err := fc.Decode(b)
	require.NoError(t, err)
	// IntDecConvertSigned always decodes CBOR integers as int64, so the
	// round-tripped value differs in type (not just value) from the
	// uint64 that was encoded.
	want := map[string]any{"foo": "bar", "baz": int64(12)}
	require.Equal(t, want, out)
}

func TestImageCodecConstantColorRoundtrip(t *testing.T) {
	reg := New()

	jpg, err := reg.Resolve("jpg")
	require.NoError(t, err)
	width, height := 16, 12
	pix := make([]byte, width*height*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i], pix[i+1], pix[i+2] = 200, 100, 50
	}
	b, err := jpg.Encode(Image{Width: width, Height: height, Channels: 3, Pix: pix})
	require.NoError(t, err)
	v, err := jpg.Decode(b)
	require.NoError(t, err)
	got := v.(Image)
	require.Equal(t, width, got.Width)
	require.Equal(t, height, got.Height)
	require.Equal(t, 3, got.Channels)
	require.Equal(t, pix, got.Pix)

	png, err := reg.Resolve("png")
	require.NoError(t, err)
	pix4 := make([]byte, width*height*4)
	for i := 0; i < len(pix4); i += 4 {
		pix4[i], pix4[i+1], pix4[i+2], pix4[i+3] = 10, 20, 30, 255
	}
	b, err = png.Encode(Image{Width: width, Height: height, Channels: 4, Pix: pix4})
	require.NoError(t, err)
	v, err = png.Decode(b)
	require.NoError(t, err)
	got = v.(Image)
	require.Equal(t, 4, got.Channels)
	require.Equal(t, pix4, got.Pix)
}

func TestMP4CodecRoundtrip(t *testing.T) {
	reg := New()
	fc, err := reg.Resolve("mp4")
	require.NoError(t, err)

	frames, height, width, channels := 20, 80, 60, 3
	data := make([]byte, frames*height*width*channels)
	for i := range data {
		data[i] = byte(i % 256)
	}
	b, err := fc.Encode(Video{Frames: frames, Height: height, Width: width, Channels: channels, Data: data})
	require.NoError(t, err)
	v, err := fc.Decode(b)
	require.NoError(t, err)
	got := v.(Video)
	require.Equal(t, frames, got.Frames)
	require.Equal(t, height, got.Height)
	require.Equal(t, width, got.Width)
	require.Equal(t, channels, got.Channels)
	require.Equal(t, data, got.Data)
}
