package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/vela-data/granular/granerr"
)

// Video is the semantic value for "mp4" fields: a frames×H×W×C byte
// tensor, row-major, channel-interleaved within each frame.
type Video struct {
	Frames, Height, Width, Channels int
	Data                            []byte
}

const mp4Magic = "GVID"

// mp4Codec moves an opaque video tensor in and out. Real H.264/MP4
// muxing belongs to an external collaborator invoked at this codec's
// boundary (spec.md §9); no repository in the retrieval pack links a
// video muxer, so this writes a minimal self-describing container
// (magic, shape header, raw frame bytes) over the standard library
// only, preserving the "core only moves opaque byte strings" contract.
func mp4Codec() *FieldCodec {
	return &FieldCodec{
		TypeString: "mp4",
		Encode: func(value any) ([]byte, error) {
			v, ok := value.(Video)
			if !ok {
				return nil, fmt.Errorf("expected codec.Video, got %T", value)
			}
			want := v.Frames * v.Height * v.Width * v.Channels
			if len(v.Data) != want {
				return nil, &granerr.CodecError{Type: "mp4", Err: fmt.Errorf("expected %d bytes for shape %dx%dx%dx%d, got %d", want, v.Frames, v.Height, v.Width, v.Channels, len(v.Data))}
			}
			header := make([]byte, len(mp4Magic)+4*4)
			copy(header, mp4Magic)
			off := len(mp4Magic)
			binary.LittleEndian.PutUint32(header[off:], uint32(v.Frames))
			binary.LittleEndian.PutUint32(header[off+4:], uint32(v.Height))
			binary.LittleEndian.PutUint32(header[off+8:], uint32(v.Width))
			binary.LittleEndian.PutUint32(header[off+12:], uint32(v.Channels))
			return append(header, v.Data...), nil
		},
		Decode: func(data []byte) (any, error) {
			headerLen := len(mp4Magic) + 4*4
			if len(data) < headerLen || string(data[:len(mp4Magic)]) != mp4Magic {
				return nil, &granerr.CodecError{Type: "mp4", Err: fmt.Errorf("bad mp4 container header")}
			}
			off := len(mp4Magic)
			frames := int(binary.LittleEndian.Uint32(data[off:]))
			height := int(binary.LittleEndian.Uint32(data[off+4:]))
			width := int(binary.LittleEndian.Uint32(data[off+8:]))
			channels := int(binary.LittleEndian.Uint32(data[off+12:]))
			want := frames * height * width * channels
			body := data[headerLen:]
			if len(body) != want {
				return nil, &granerr.CodecError{Type: "mp4", Err: fmt.Errorf("expected %d bytes of frame data, got %d", want, len(body))}
			}
			out := make([]byte, want)
			copy(out, body)
			return Video{Frames: frames, Height: height, Width: width, Channels: channels, Data: out}, nil
		},
	}
}
