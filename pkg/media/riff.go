// riff.go - RIFF chunk walking and writing shared by the WAV and AVI containers.
// Sizes are little-endian and every chunk body is padded to an even length.
package media

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrFormat is returned for containers that cannot be parsed.
var ErrFormat = errors.New("unsupported or malformed container")

// chunk is a parsed RIFF chunk. For LIST chunks data starts with the list type.
type chunk struct {
	id   string
	data []byte
}

// parseChunks splits b into consecutive chunks. A final chunk whose declared
// size runs past the end of b is clamped, which is how streamed WAV files
// with a placeholder size are read. Fewer than 8 trailing bytes are dropped.
func parseChunks(b []byte) []chunk {
	var out []chunk
	for len(b) >= 8 {
		id := string(b[:4])
		size := int64(binary.LittleEndian.Uint32(b[4:8]))
		b = b[8:]
		if size > int64(len(b)) {
			size = int64(len(b))
		}
		out = append(out, chunk{id: id, data: b[:size]})
		b = b[size:]
		if size%2 == 1 && len(b) > 0 {
			b = b[1:]
		}
	}
	return out
}

func paddedLen(n int) uint32 {
	return uint32(n + n&1)
}

// riffWriter writes little-endian RIFF fields and keeps the first error.
type riffWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (rw *riffWriter) write(p []byte) {
	if rw.err != nil {
		return
	}
	n, err := rw.w.Write(p)
	rw.n += int64(n)
	rw.err = err
}

func (rw *riffWriter) fourCC(s string) {
	rw.write([]byte(s[:4]))
}

func (rw *riffWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	rw.write(b[:])
}

func (rw *riffWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	rw.write(b[:])
}

// chunk writes a complete chunk including its pad byte.
func (rw *riffWriter) chunk(id string, data []byte) {
	rw.fourCC(id)
	rw.u32(uint32(len(data)))
	rw.write(data)
	if len(data)%2 == 1 {
		rw.write([]byte{0})
	}
}
