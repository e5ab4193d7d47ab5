package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/vela-data/granular/granerr"
)

// Image is the semantic value for "jpg" and "png" fields: a 3-channel
// (RGB) or 4-channel (RGBA) byte image, row-major, channel-interleaved.
type Image struct {
	Width, Height, Channels int
	Pix                     []byte
}

func (im Image) toNRGBA() (*image.NRGBA, error) {
	if im.Channels != 3 && im.Channels != 4 {
		return nil, fmt.Errorf("image must have 3 or 4 channels, got %d", im.Channels)
	}
	want := im.Width * im.Height * im.Channels
	if len(im.Pix) != want {
		return nil, fmt.Errorf("expected %d pixel bytes for %dx%dx%d, got %d", want, im.Width, im.Height, im.Channels, len(im.Pix))
	}
	out := image.NewNRGBA(image.Rect(0, 0, im.Width, im.Height))
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			srcOff := (y*im.Width + x) * im.Channels
			var c color.NRGBA
			c.R = im.Pix[srcOff]
			c.G = im.Pix[srcOff+1]
			c.B = im.Pix[srcOff+2]
			if im.Channels == 4 {
				c.A = im.Pix[srcOff+3]
			} else {
				c.A = 255
			}
			out.SetNRGBA(x, y, c)
		}
	}
	return out, nil
}

func fromNRGBA(img *image.NRGBA, channels int) Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, w*h*channels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			off := (y*w + x) * channels
			pix[off] = c.R
			pix[off+1] = c.G
			pix[off+2] = c.B
			if channels == 4 {
				pix[off+3] = c.A
			}
		}
	}
	return Image{Width: w, Height: h, Channels: channels, Pix: pix}
}

// imageCodec builds the "jpg"/"png" codecs. The core only moves
// opaque encoded bytes; the actual codec work is delegated to the
// standard library's image/jpeg and image/png packages (spec.md §9:
// "delegate JPG/PNG/MP4 encoding and decoding to external libraries").
func imageCodec(kind string) *FieldCodec {
	return &FieldCodec{
		TypeString: kind,
		Encode: func(value any) ([]byte, error) {
			im, ok := value.(Image)
			if !ok {
				return nil, fmt.Errorf("expected codec.Image, got %T", value)
			}
			nrgba, err := im.toNRGBA()
			if err != nil {
				return nil, &granerr.CodecError{Type: kind, Err: err}
			}
			var buf bytes.Buffer
			switch kind {
			case "jpg":
				err = jpeg.Encode(&buf, nrgba, &jpeg.Options{Quality: 100})
			case "png":
				err = png.Encode(&buf, nrgba)
			}
			if err != nil {
				return nil, &granerr.CodecError{Type: kind, Err: err}
			}
			return buf.Bytes(), nil
		},
		Decode: func(data []byte) (any, error) {
			var img image.Image
			var err error
			switch kind {
			case "jpg":
				img, err = jpeg.Decode(bytes.NewReader(data))
			case "png":
				img, err = png.Decode(bytes.NewReader(data))
			}
			if err != nil {
				return nil, &granerr.CodecError{Type: kind, Err: err}
			}
			nrgba, ok := img.(*image.NRGBA)
			if !ok {
				b := img.Bounds()
				converted := image.NewNRGBA(b)
				for y := b.Min.Y; y < b.Max.Y; y++ {
					for x := b.Min.X; x < b.Max.X; x++ {
						converted.Set(x, y, img.At(x, y))
					}
				}
				nrgba = converted
			}
			channels := 4
			if kind == "jpg" {
				channels = 3
			}
			return fromNRGBA(nrgba, channels), nil
		},
	}
}
