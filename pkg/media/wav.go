// wav.go - RIFF/WAVE PCM container. Every chunk is kept in order so a
// rewritten file differs from its source only inside the data chunk.
package media

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// WAVFormat is the decoded fmt chunk.
type WAVFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// PCMFormat returns an integer PCM format.
func PCMFormat(channels, sampleRate, bitsPerSample int) WAVFormat {
	align := channels * bitsPerSample / 8
	return WAVFormat{
		AudioFormat:   1,
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * align),
		BlockAlign:    uint16(align),
		BitsPerSample: uint16(bitsPerSample),
	}
}

func (f WAVFormat) bytes() []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint16(b[0:], f.AudioFormat)
	binary.LittleEndian.PutUint16(b[2:], f.Channels)
	binary.LittleEndian.PutUint32(b[4:], f.SampleRate)
	binary.LittleEndian.PutUint32(b[8:], f.ByteRate)
	binary.LittleEndian.PutUint16(b[12:], f.BlockAlign)
	binary.LittleEndian.PutUint16(b[14:], f.BitsPerSample)
	return b
}

// WAV is a parsed wave file.
type WAV struct {
	Format WAVFormat
	chunks []chunk
	data   int
}

// NewPCM builds a canonical WAV holding data.
func NewPCM(format WAVFormat, data []byte) *WAV {
	return &WAV{
		Format: format,
		chunks: []chunk{{id: "fmt ", data: format.bytes()}, {id: "data", data: data}},
		data:   1,
	}
}

// ReadWAV parses a wave file from r.
func ReadWAV(r io.Reader) (*WAV, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b) < 12 || string(b[:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrFormat)
	}
	chunks := parseChunks(b[12:])

	w := &WAV{chunks: chunks, data: -1}
	haveFmt := false
	for i, c := range chunks {
		switch c.id {
		case "fmt ":
			if len(c.data) < 16 {
				return nil, fmt.Errorf("%w: fmt chunk is %d bytes", ErrFormat, len(c.data))
			}
			w.Format = WAVFormat{
				AudioFormat:   binary.LittleEndian.Uint16(c.data[0:]),
				Channels:      binary.LittleEndian.Uint16(c.data[2:]),
				SampleRate:    binary.LittleEndian.Uint32(c.data[4:]),
				ByteRate:      binary.LittleEndian.Uint32(c.data[8:]),
				BlockAlign:    binary.LittleEndian.Uint16(c.data[12:]),
				BitsPerSample: binary.LittleEndian.Uint16(c.data[14:]),
			}
			haveFmt = true
		case "data":
			if w.data < 0 {
				w.data = i
			}
		}
	}
	if !haveFmt {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrFormat)
	}
	if w.data < 0 {
		return nil, fmt.Errorf("%w: missing data chunk", ErrFormat)
	}
	return w, nil
}

// Data returns the PCM bytes. Changes are visible to WriteTo.
func (w *WAV) Data() []byte { return w.chunks[w.data].data }

// Duration returns the playback length in seconds.
func (w *WAV) Duration() float64 {
	if w.Format.ByteRate == 0 {
		return 0
	}
	return float64(len(w.Data())) / float64(w.Format.ByteRate)
}

// WriteTo writes the complete RIFF file.
func (w *WAV) WriteTo(out io.Writer) (int64, error) {
	size := uint32(4)
	for _, c := range w.chunks {
		size += 8 + paddedLen(len(c.data))
	}
	rw := &riffWriter{w: out}
	rw.fourCC("RIFF")
	rw.u32(size)
	rw.fourCC("WAVE")
	for _, c := range w.chunks {
		rw.chunk(c.id, c.data)
	}
	return rw.n, rw.err
}

// Bytes returns the encoded file.
func (w *WAV) Bytes() []byte {
	var buf bytes.Buffer
	w.WriteTo(&buf)
	return buf.Bytes()
}
