// Package cover generates carrier media for steganography.
//
// Images and video frames follow one pipeline: build an image.Image first,
// then write it as a lossless still or containerize it as an AVI. Audio
// covers are synthesized PCM tones.
package cover

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xob0t/GoStego/pkg/media"
)

// Config holds parameters for cover generation.
type Config struct {
	Width    int     // Pixel width (default: 640)
	Height   int     // Pixel height (default: 480)
	Duration float64 // Seconds, video and audio (default: 1)
	FPS      int     // Video frame rate (default: 15)
	Color    string  // Hex "#rrggbb" or "random"
	Noise    int     // Per-pixel or per-sample noise amplitude, 0 for flat
	Caption  string  // Optional text drawn over the image
	FontPath string  // Custom TTF for captions; empty uses Go Regular
	Lossless bool    // AVI only: uncompressed DIB frames instead of MJPEG
	Seed     uint64  // Noise seed; 0 picks one at random

	SampleRate int     // Audio (default: 44100)
	Channels   int     // Audio (default: 2)
	BitDepth   int     // Audio, 8 or 16 (default: 16)
	Tone       float64 // Audio tone in Hz (default: 440)
}

// Generation limits. They bound memory per frame and the size of the output.
const (
	MaxDimension  = 8192
	MaxPixels     = 4096 * 4096
	MaxDuration   = 600
	MaxFPS        = 120
	MaxSampleRate = 192000
	MaxChannels   = 8
	// MaxVideoBytes caps the uncompressed frame data of a lossless AVI.
	MaxVideoBytes = 2 << 30
)

// ErrLimit is returned by Validate for a configuration beyond the limits.
var ErrLimit = errors.New("cover exceeds generation limits")

// Validate checks c against the generation limits. Zero fields take their
// defaults and are valid.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch {
	case c.Width > MaxDimension || c.Height > MaxDimension:
		return fmt.Errorf("%w: %dx%d (max %d per side)", ErrLimit, c.Width, c.Height, MaxDimension)
	case c.Width*c.Height > MaxPixels:
		return fmt.Errorf("%w: %dx%d is over %d pixels", ErrLimit, c.Width, c.Height, MaxPixels)
	case c.Duration > MaxDuration:
		return fmt.Errorf("%w: duration %gs (max %ds)", ErrLimit, c.Duration, MaxDuration)
	case c.FPS > MaxFPS:
		return fmt.Errorf("%w: %d fps (max %d)", ErrLimit, c.FPS, MaxFPS)
	case c.SampleRate > MaxSampleRate:
		return fmt.Errorf("%w: sample rate %d (max %d)", ErrLimit, c.SampleRate, MaxSampleRate)
	case c.Channels > MaxChannels:
		return fmt.Errorf("%w: %d channels (max %d)", ErrLimit, c.Channels, MaxChannels)
	case c.Noise > 255:
		return fmt.Errorf("%w: noise %d (max 255)", ErrLimit, c.Noise)
	}
	if c.Lossless {
		frames := int64(max(int(c.Duration*float64(c.FPS)), 1))
		if size := int64(c.Width*c.Height*3) * frames; size > MaxVideoBytes {
			return fmt.Errorf("%w: %d bytes of uncompressed video (max %d)", ErrLimit, size, MaxVideoBytes)
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = 640
	}
	if c.Height <= 0 {
		c.Height = 480
	}
	if c.Duration <= 0 {
		c.Duration = 1
	}
	if c.FPS <= 0 {
		c.FPS = 15
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.Channels <= 0 {
		c.Channels = 2
	}
	if c.BitDepth != 8 {
		c.BitDepth = 16
	}
	if c.Tone <= 0 {
		c.Tone = 440
	}
	return c
}

// Generate creates output. The format is inferred from the file extension:
//   - ".png", ".bmp", ".tif", ".tiff": still image
//   - ".avi": MJPEG video, or uncompressed with cfg.Lossless
//   - ".wav": PCM tone
func Generate(output string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := GenerateToWriter(f, filepath.Ext(output), cfg); err != nil {
		f.Close()
		os.Remove(output)
		return err
	}
	return f.Close()
}

// GenerateToWriter writes a cover of the format named by ext to w.
func GenerateToWriter(w io.Writer, ext string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()
	switch ext = strings.ToLower(ext); ext {
	case ".png", ".bmp", ".tif", ".tiff":
		img, err := newFrame(cfg, newNoise(cfg.Seed))
		if err != nil {
			return err
		}
		return media.WriteImage(w, media.FromImage(img), media.LosslessFormat(ext))
	case ".avi":
		return writeAVI(w, cfg)
	case ".wav":
		_, err := tone(cfg).WriteTo(w)
		return err
	default:
		return fmt.Errorf("unsupported format %q: use .png, .bmp, .tiff, .avi or .wav", ext)
	}
}

// newFrame renders one cover image: a solid fill, optional noise, then the caption.
func newFrame(cfg Config, rng *noise) (*image.RGBA, error) {
	c, err := rng.color(cfg.Color)
	if err != nil {
		return nil, err
	}
	img := rng.solid(cfg.Width, cfg.Height, c, cfg.Noise)
	if cfg.Caption != "" {
		if err := drawCaption(img, cfg.Caption, cfg.FontPath); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func writeAVI(w io.Writer, cfg Config) error {
	frames := max(int(cfg.Duration*float64(cfg.FPS)), 1)
	stream := media.AVIStream{
		Width:  cfg.Width,
		Height: cfg.Height,
		Rate:   uint32(cfg.FPS),
		Scale:  1,
		Codec:  media.CodecDIB,
	}

	// Color "random" resolves once so every frame shares the fill.
	rng := newNoise(cfg.Seed)
	c, err := rng.color(cfg.Color)
	if err != nil {
		return err
	}
	cfg.Color = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)

	if !cfg.Lossless {
		img, err := newFrame(cfg, rng)
		if err != nil {
			return err
		}
		buf := new(bytes.Buffer)
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 95}); err != nil {
			return fmt.Errorf("failed to encode JPEG: %w", err)
		}
		jpegData := buf.Bytes()
		stream.Codec = media.CodecMJPG
		stream.ChunkSize = len(jpegData)
		return media.WriteAVI(w, stream, frames, func(int) ([]byte, error) {
			return jpegData, nil
		})
	}

	return media.WriteAVI(w, stream, frames, func(int) ([]byte, error) {
		img, err := newFrame(cfg, rng)
		if err != nil {
			return nil, err
		}
		return media.EncodeDIB(media.FromImage(img).RGB(), cfg.Width, cfg.Height), nil
	})
}
