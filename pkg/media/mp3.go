package media

import (
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 decodes an MP3 stream to 16-bit little-endian stereo PCM at the
// stream's sample rate.
func DecodeMP3(r io.Reader) (*WAV, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %v", ErrFormat, err)
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	return NewPCM(PCMFormat(2, d.SampleRate(), 16), pcm), nil
}

// TranscodeToTemp decodes the MP3 file at src into a temporary WAV in dir.
// The returned cleanup removes the WAV and may be called more than once.
func TranscodeToTemp(src, dir string) (string, func(), error) {
	in, err := os.Open(src)
	if err != nil {
		return "", nil, err
	}
	defer in.Close()

	w, err := DecodeMP3(in)
	if err != nil {
		return "", nil, err
	}

	out, err := os.CreateTemp(dir, "gostego-*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("create temp wav: %w", err)
	}
	path := out.Name()
	cleanup := func() { os.Remove(path) }

	if _, err := w.WriteTo(out); err != nil {
		out.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp wav: %w", err)
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
