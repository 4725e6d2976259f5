// image.go - Still image decoding to packed RGB and lossless re-encoding.
package media

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is a decoded picture as packed 8-bit RGB plus an optional alpha plane.
type Image struct {
	Width  int
	Height int
	// Format is the name of the decoder that read the source.
	Format string
	rgb    []byte
	alpha  []byte
}

// NewImage wraps packed RGB pixels. alpha may be nil for an opaque image.
func NewImage(width, height int, rgb, alpha []byte) *Image {
	return &Image{Width: width, Height: height, rgb: rgb, alpha: alpha}
}

// ReadImage decodes PNG, BMP, TIFF, JPEG, GIF or WebP.
func ReadImage(r io.Reader) (*Image, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	m := FromImage(src)
	m.Format = format
	return m, nil
}

// FromImage converts any image to non-premultiplied packed RGB.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	m := &Image{Width: w, Height: h, rgb: make([]byte, w*h*3)}

	var alpha []byte
	opaque := true
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			m.rgb[i*3], m.rgb[i*3+1], m.rgb[i*3+2] = c.R, c.G, c.B
			if c.A != 0xFF {
				if opaque {
					alpha = make([]byte, w*h)
					for j := range i {
						alpha[j] = 0xFF
					}
					opaque = false
				}
			}
			if !opaque {
				alpha[i] = c.A
			}
			i++
		}
	}
	m.alpha = alpha
	return m
}

// RGB returns the packed pixels, row-major with R, G, B per pixel.
func (m *Image) RGB() []byte { return m.rgb }

// HasAlpha reports whether any pixel is not fully opaque.
func (m *Image) HasAlpha() bool { return m.alpha != nil }

// NRGBA builds an image.NRGBA from the current pixels.
func (m *Image) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i := 0; i < m.Width*m.Height; i++ {
		out.Pix[i*4] = m.rgb[i*3]
		out.Pix[i*4+1] = m.rgb[i*3+1]
		out.Pix[i*4+2] = m.rgb[i*3+2]
		out.Pix[i*4+3] = 0xFF
		if m.alpha != nil {
			out.Pix[i*4+3] = m.alpha[i]
		}
	}
	return out
}

// LosslessFormat maps a file extension to a lossless output format. Anything
// other than BMP or TIFF is written as PNG.
func LosslessFormat(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "bmp":
		return "bmp"
	case "tif", "tiff":
		return "tiff"
	default:
		return "png"
	}
}

// WriteImage encodes m as "png", "bmp" or "tiff".
func WriteImage(w io.Writer, m *Image, format string) error {
	img := m.NRGBA()
	switch format {
	case "png":
		return png.Encode(w, img)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: cannot write %q images", ErrFormat, format)
	}
}
