package stego

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xob0t/GoStego/pkg/carrier"
	"github.com/xob0t/GoStego/pkg/media"
)

// opened is a carrier file loaded for one call.
type opened struct {
	medium  Medium
	carrier carrier.Carrier
	// write serializes the (possibly mutated) carrier into the lossless
	// container named by the output path.
	write   func(w io.Writer, output string) error
	closers []func()
}

func (o *opened) close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i]()
	}
	o.closers = nil
}

func (c *Codec) open(path string, m Medium) (*opened, error) {
	switch m {
	case MediumAudio:
		return c.openAudio(path)
	case MediumImage:
		return openImage(path)
	case MediumVideo:
		return openVideo(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedium, path)
	}
}

func (c *Codec) openAudio(path string) (*opened, error) {
	o := &opened{medium: MediumAudio}
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		wav, cleanup, err := media.TranscodeToTemp(path, c.opts.tempDir)
		if err != nil {
			return nil, fmt.Errorf("%w: transcode %s: %w", ErrCarrierIO, path, err)
		}
		c.opts.logger.Debug("transcoded mp3 carrier", "source", path, "wav", wav)
		o.closers = append(o.closers, cleanup)
		path = wav
	}

	f, err := os.Open(path)
	if err != nil {
		o.close()
		return nil, fmt.Errorf("%w: %w", ErrCarrierIO, err)
	}
	defer f.Close()
	w, err := media.ReadWAV(f)
	if err != nil {
		o.close()
		return nil, fmt.Errorf("%w: %s: %w", ErrCarrierIO, path, err)
	}

	o.carrier = carrier.NewBuffer(w.Data())
	o.write = func(out io.Writer, _ string) error {
		_, err := w.WriteTo(out)
		return err
	}
	return o, nil
}

func openImage(path string) (*opened, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCarrierIO, err)
	}
	defer f.Close()
	img, err := media.ReadImage(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCarrierIO, path, err)
	}

	return &opened{
		medium:  MediumImage,
		carrier: carrier.NewBuffer(img.RGB()),
		write: func(out io.Writer, output string) error {
			return media.WriteImage(out, img, media.LosslessFormat(filepath.Ext(output)))
		},
	}, nil
}

func openVideo(path string) (*opened, error) {
	a, err := media.OpenAVI(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCarrierIO, path, err)
	}
	frames := carrier.NewLazy(a.FrameCount(), a.FrameSize(), a.Frame)
	return &opened{
		medium:  MediumVideo,
		carrier: frames,
		write: func(out io.Writer, _ string) error {
			return media.WriteAVI(out, a.Stream(), a.FrameCount(), func(i int) ([]byte, error) {
				f, err := frames.Peek(i)
				if err != nil {
					return nil, err
				}
				return media.EncodeDIB(f, a.Width, a.Height), nil
			})
		},
		closers: []func(){func() { a.Close() }},
	}, nil
}
