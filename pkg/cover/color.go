package cover

import (
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"strconv"
	"strings"
)

// ParseColor parses "#rrggbb" or the "#rgb" shorthand. The '#' is optional.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: expected #rrggbb or #rgb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// noise is the seeded source behind random fills and per-sample noise, so a
// non-zero Config.Seed reproduces a cover byte for byte.
type noise struct {
	rng *rand.Rand
}

func newNoise(seed uint64) *noise {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &noise{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// color resolves a Config color; "" and "random" draw from n.
func (n *noise) color(s string) (color.RGBA, error) {
	if s == "" || s == "random" {
		v := n.rng.Uint32()
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return ParseColor(s)
}

// apply adds uniform noise in [-amp, amp] to every byte of p except each
// step-th one, which is left alone (alpha for step 4; 0 disables the skip).
func (n *noise) apply(p []byte, amp, step int) {
	if amp <= 0 {
		return
	}
	for i := range p {
		if step > 0 && i%step == step-1 {
			continue
		}
		v := int(p[i]) + n.rng.IntN(2*amp+1) - amp
		p[i] = uint8(min(max(v, 0), 255))
	}
}

// solid returns a w x h opaque image of c with noise of amplitude amp on the
// color channels.
func (n *noise) solid(w, h int, c color.RGBA, amp int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	row := img.Pix[:w*4]
	for x := 0; x < len(row); x += 4 {
		row[x], row[x+1], row[x+2], row[x+3] = c.R, c.G, c.B, 255
	}
	for y := 1; y < h; y++ {
		copy(img.Pix[y*img.Stride:], row)
	}
	n.apply(img.Pix, amp, 4)
	return img
}
