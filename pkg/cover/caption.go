// caption.go - Caption text over cover images, using an OpenType face with the
// embedded Go Regular font as fallback.
package cover

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// loadFont parses the TTF at path, or Go Regular when path is empty.
func loadFont(path string) (*opentype.Font, error) {
	data := goregular.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load font: %w", err)
		}
		data = b
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return f, nil
}

// drawCaption writes text centered on img, wrapped to 90% of its width.
func drawCaption(img *image.RGBA, text, fontPath string) error {
	f, err := loadFont(fontPath)
	if err != nil {
		return err
	}
	b := img.Bounds()
	size := max(float64(b.Dy())/12, 8)
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	lines := wrapText(text, b.Dx()*9/10, face)
	lineHeight := int(size * 1.4)
	y := b.Min.Y + (b.Dy()-lineHeight*len(lines))/2

	col := captionColor(img.RGBAAt(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2))
	d := &font.Drawer{Dst: img, Src: image.NewUniform(col), Face: face}
	for _, line := range lines {
		y += lineHeight
		w := d.MeasureString(line).Ceil()
		d.Dot = fixed.P(b.Min.X+(b.Dx()-w)/2, y)
		d.DrawString(line)
	}
	return nil
}

// wrapText breaks text into lines that each fit within maxWidth pixels.
func wrapText(text string, maxWidth int, face font.Face) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWidth <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		test := current + " " + word
		if font.MeasureString(face, test).Ceil() > maxWidth {
			lines = append(lines, current)
			current = word
		} else {
			current = test
		}
	}
	return append(lines, current)
}

// captionColor picks black or white, whichever contrasts with bg.
func captionColor(bg color.RGBA) color.RGBA {
	lum := 299*int(bg.R) + 587*int(bg.G) + 114*int(bg.B)
	if lum > 128*1000 {
		return color.RGBA{0, 0, 0, 255}
	}
	return color.RGBA{255, 255, 255, 255}
}
