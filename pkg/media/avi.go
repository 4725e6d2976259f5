// avi.go - AVI container reading and writing.
// Reading understands uncompressed DIB (24 or 32 bit) and MJPEG video streams,
// including OpenDML AVIX extensions. Frames are decoded on demand. Writing
// produces uncompressed 24-bit DIB or MJPEG streams with an idx1 index.
package media

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/jpeg"
	"io"
	"math"
	"os"
	"strings"
)

// AVI codecs this package handles.
const (
	CodecDIB  = "DIB "
	CodecMJPG = "MJPG"
)

type frameRef struct {
	off  int64
	size int64
}

// AVI is a parsed AVI file whose frames are read from r on demand.
type AVI struct {
	Width  int
	Height int
	// Frame rate is Rate/Scale frames per second.
	Rate     uint32
	Scale    uint32
	Codec    string
	BitCount int

	r       io.ReaderAt
	closer  io.Closer
	frames  []frameRef
	stream  int
	strl    int
	topDown bool
}

// OpenAVI opens and parses the AVI file at path. Close releases it.
func OpenAVI(path string) (*AVI, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	a, err := ReadAVI(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// ReadAVI parses the headers and frame index of an AVI held in r.
func ReadAVI(r io.ReaderAt, size int64) (*AVI, error) {
	a := &AVI{r: r, stream: -1}

	var off int64
	for off+12 <= size {
		id, n, err := a.header(off)
		if err != nil {
			return nil, err
		}
		typ, err := a.fourCC(off + 8)
		if err != nil {
			return nil, err
		}
		if id != "RIFF" || (off == 0 && typ != "AVI ") {
			if off == 0 {
				return nil, fmt.Errorf("%w: not a RIFF/AVI file", ErrFormat)
			}
			break
		}
		end := min(off+8+n, size)
		if err := a.walk(off+12, end); err != nil {
			return nil, err
		}
		off = end + n&1
	}

	if a.stream < 0 {
		return nil, fmt.Errorf("%w: no video stream", ErrFormat)
	}
	if a.Width <= 0 || a.Height <= 0 {
		return nil, fmt.Errorf("%w: bad frame size %dx%d", ErrFormat, a.Width, a.Height)
	}
	switch a.Codec {
	case CodecDIB:
		if a.BitCount != 24 && a.BitCount != 32 {
			return nil, fmt.Errorf("%w: %d-bit DIB video", ErrFormat, a.BitCount)
		}
	case CodecMJPG:
	default:
		return nil, fmt.Errorf("%w: video codec %q (convert to uncompressed or MJPEG AVI)", ErrFormat, a.Codec)
	}
	return a, nil
}

func (a *AVI) header(off int64) (string, int64, error) {
	var b [8]byte
	if _, err := a.r.ReadAt(b[:], off); err != nil {
		return "", 0, fmt.Errorf("%w: chunk header at %d: %v", ErrFormat, off, err)
	}
	return string(b[:4]), int64(binary.LittleEndian.Uint32(b[4:])), nil
}

func (a *AVI) fourCC(off int64) (string, error) {
	var b [4]byte
	if _, err := a.r.ReadAt(b[:], off); err != nil {
		return "", fmt.Errorf("%w: list type at %d: %v", ErrFormat, off, err)
	}
	return string(b[:]), nil
}

// walk indexes the chunks in [off, end).
func (a *AVI) walk(off, end int64) error {
	for off+8 <= end {
		id, n, err := a.header(off)
		if err != nil {
			return err
		}
		body := off + 8
		bodyEnd := min(body+n, end)

		if id == "LIST" && bodyEnd-body >= 4 {
			typ, err := a.fourCC(body)
			if err != nil {
				return err
			}
			switch typ {
			case "hdrl":
				b := make([]byte, bodyEnd-body-4)
				if _, err := a.r.ReadAt(b, body+4); err != nil {
					return fmt.Errorf("%w: hdrl: %v", ErrFormat, err)
				}
				a.parseHeaders(b)
			case "movi", "rec ":
				if err := a.walk(body+4, bodyEnd); err != nil {
					return err
				}
			}
		} else if a.isFrame(id) {
			ref := frameRef{off: body, size: bodyEnd - body}
			// An empty chunk repeats the previous frame.
			if ref.size == 0 && len(a.frames) > 0 {
				ref = a.frames[len(a.frames)-1]
			}
			a.frames = append(a.frames, ref)
		}
		off = bodyEnd + n&1
	}
	return nil
}

func (a *AVI) parseHeaders(b []byte) {
	for _, c := range parseChunks(b) {
		switch {
		case c.id == "avih" && len(c.data) >= 40:
			a.Width = int(binary.LittleEndian.Uint32(c.data[32:]))
			a.Height = int(binary.LittleEndian.Uint32(c.data[36:]))
		case c.id == "LIST" && len(c.data) >= 4 && string(c.data[:4]) == "strl":
			a.parseStream(parseChunks(c.data[4:]))
			a.strl++
		}
	}
}

func (a *AVI) parseStream(chunks []chunk) {
	if a.stream >= 0 {
		return
	}
	var strh, strf []byte
	for _, c := range chunks {
		switch c.id {
		case "strh":
			strh = c.data
		case "strf":
			strf = c.data
		}
	}
	if len(strh) < 28 || string(strh[:4]) != "vids" || len(strf) < 20 {
		return
	}
	a.stream = a.strl
	a.Scale = binary.LittleEndian.Uint32(strh[20:])
	a.Rate = binary.LittleEndian.Uint32(strh[24:])

	a.Width = int(int32(binary.LittleEndian.Uint32(strf[4:])))
	h := int(int32(binary.LittleEndian.Uint32(strf[8:])))
	a.topDown = h < 0
	a.Height = max(h, -h)
	a.BitCount = int(binary.LittleEndian.Uint16(strf[14:]))

	comp := strf[16:20]
	switch {
	case binary.LittleEndian.Uint32(comp) == 0, string(comp) == "DIB ", string(comp) == "RGB ":
		a.Codec = CodecDIB
	case strings.EqualFold(string(comp), CodecMJPG):
		a.Codec = CodecMJPG
	default:
		a.Codec = string(comp)
	}
}

func (a *AVI) isFrame(id string) bool {
	if a.stream < 0 || len(id) != 4 {
		return false
	}
	return id[:2] == fmt.Sprintf("%02d", a.stream) && (id[2:] == "db" || id[2:] == "dc")
}

// FrameCount returns the number of video frames in container order.
func (a *AVI) FrameCount() int { return len(a.frames) }

// FrameSize returns the packed RGB size of one frame.
func (a *AVI) FrameSize() int { return a.Width * a.Height * 3 }

// FPS returns the frame rate.
func (a *AVI) FPS() float64 {
	if a.Scale == 0 {
		return 0
	}
	return float64(a.Rate) / float64(a.Scale)
}

// Frame reads and decodes frame i to packed RGB, top row first.
func (a *AVI) Frame(i int) ([]byte, error) {
	if i < 0 || i >= len(a.frames) {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", i, len(a.frames))
	}
	ref := a.frames[i]
	if ref.size == 0 {
		return make([]byte, a.FrameSize()), nil
	}
	buf := make([]byte, ref.size)
	if _, err := a.r.ReadAt(buf, ref.off); err != nil {
		return nil, fmt.Errorf("read frame %d: %w", i, err)
	}

	switch a.Codec {
	case CodecMJPG:
		img, err := jpeg.Decode(bytes.NewReader(buf))
		if err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", i, err)
		}
		m := FromImage(img)
		if m.Width != a.Width || m.Height != a.Height {
			return nil, fmt.Errorf("%w: frame %d is %dx%d", ErrFormat, i, m.Width, m.Height)
		}
		return m.RGB(), nil
	default:
		return DecodeDIB(buf, a.Width, a.Height, a.BitCount, a.topDown)
	}
}

// Stream returns the header to write a lossless copy of a.
func (a *AVI) Stream() AVIStream {
	return AVIStream{Width: a.Width, Height: a.Height, Rate: a.Rate, Scale: a.Scale, Codec: CodecDIB}
}

// Close releases the file opened by OpenAVI.
func (a *AVI) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func dibStride(width, bitCount int) int {
	return (width*bitCount/8 + 3) &^ 3
}

// DecodeDIB converts BGR(A) rows to packed top-down RGB.
func DecodeDIB(buf []byte, width, height, bitCount int, topDown bool) ([]byte, error) {
	stride := dibStride(width, bitCount)
	if len(buf) < stride*height {
		return nil, fmt.Errorf("%w: DIB frame is %d bytes, want %d", ErrFormat, len(buf), stride*height)
	}
	step := bitCount / 8
	out := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		src := y
		if !topDown {
			src = height - 1 - y
		}
		row := buf[src*stride:]
		for x := 0; x < width; x++ {
			p := row[x*step:]
			o := (y*width + x) * 3
			out[o], out[o+1], out[o+2] = p[2], p[1], p[0]
		}
	}
	return out, nil
}

// EncodeDIB converts packed top-down RGB to bottom-up 24-bit BGR rows.
func EncodeDIB(rgb []byte, width, height int) []byte {
	stride := dibStride(width, 24)
	out := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		row := out[(height-1-y)*stride:]
		for x := 0; x < width; x++ {
			o := (y*width + x) * 3
			row[x*3], row[x*3+1], row[x*3+2] = rgb[o+2], rgb[o+1], rgb[o]
		}
	}
	return out
}

// AVIStream describes the single video stream written by WriteAVI.
type AVIStream struct {
	Width  int
	Height int
	Rate   uint32
	Scale  uint32
	Codec  string
	// ChunkSize is the size of every frame chunk. It is derived for DIB.
	ChunkSize int
}

func (s AVIStream) chunkSize() int {
	if s.Codec == CodecDIB {
		return dibStride(s.Width, 24) * s.Height
	}
	return s.ChunkSize
}

// WriteAVI writes frames chunks produced by chunk. Every chunk must be
// exactly the stream's chunk size: EncodeDIB output for DIB, or JPEG data
// for MJPEG.
func WriteAVI(w io.Writer, s AVIStream, frames int, chunk func(i int) ([]byte, error)) error {
	if s.Rate == 0 {
		s.Rate, s.Scale = 15, 1
	}
	if s.Scale == 0 {
		s.Scale = 1
	}
	chunkID, handler, compression := "00db", CodecDIB, uint32(0)
	if s.Codec == CodecMJPG {
		chunkID, handler = "00dc", CodecMJPG
		compression = binary.LittleEndian.Uint32([]byte(CodecMJPG))
	}

	size := uint32(s.chunkSize())
	width, height := uint32(s.Width), uint32(s.Height)
	total := uint32(frames)

	frameChunkSize := 8 + paddedLen(int(size))
	moviSize := 4 + uint64(total)*uint64(frameChunkSize)
	idx1Size := 8 + uint64(total)*16
	hdrlSize := uint32(4 + 64 + 124) // list type + avih + strl
	fileSize := 4 + uint64(8+hdrlSize) + (8 + moviSize) + idx1Size
	if fileSize > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes exceeds the 4 GiB RIFF limit", ErrFormat, fileSize)
	}

	rw := &riffWriter{w: w}
	rw.fourCC("RIFF")
	rw.u32(uint32(fileSize))
	rw.fourCC("AVI ")

	rw.fourCC("LIST")
	rw.u32(hdrlSize)
	rw.fourCC("hdrl")

	rw.fourCC("avih")
	rw.u32(56)
	rw.u32(uint32(1e6 * float64(s.Scale) / float64(s.Rate))) // microseconds per frame
	rw.u32(uint32(uint64(size) * uint64(s.Rate) / uint64(s.Scale)))
	rw.u32(0)    // padding granularity
	rw.u32(0x10) // AVIF_HASINDEX
	rw.u32(total)
	rw.u32(0) // initial frames
	rw.u32(1) // streams
	rw.u32(size)
	rw.u32(width)
	rw.u32(height)
	for range 4 {
		rw.u32(0)
	}

	rw.fourCC("LIST")
	rw.u32(116) // strh(64) + strf(48) + list type
	rw.fourCC("strl")

	rw.fourCC("strh")
	rw.u32(56)
	rw.fourCC("vids")
	rw.fourCC(handler)
	rw.u32(0) // flags
	rw.u16(0) // priority
	rw.u16(0) // language
	rw.u32(0) // initial frames
	rw.u32(s.Scale)
	rw.u32(s.Rate)
	rw.u32(0) // start
	rw.u32(total)
	rw.u32(size)
	rw.u32(0xFFFFFFFF) // quality: default
	rw.u32(0)          // sample size
	rw.u16(0)
	rw.u16(0)
	rw.u16(uint16(width))
	rw.u16(uint16(height))

	rw.fourCC("strf")
	rw.u32(40)
	rw.u32(40)
	rw.u32(width)
	rw.u32(height) // positive: bottom-up rows
	rw.u16(1)
	rw.u16(24)
	rw.u32(compression)
	rw.u32(width * height * 3)
	rw.u32(0)
	rw.u32(0)
	rw.u32(0)
	rw.u32(0)

	rw.fourCC("LIST")
	rw.u32(uint32(moviSize))
	rw.fourCC("movi")
	for i := 0; i < frames && rw.err == nil; i++ {
		data, err := chunk(i)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if len(data) != int(size) {
			return fmt.Errorf("frame %d: chunk is %d bytes, want %d", i, len(data), size)
		}
		rw.chunk(chunkID, data)
	}

	rw.fourCC("idx1")
	rw.u32(total * 16)
	offset := uint32(4) // from the movi list type
	for range frames {
		rw.fourCC(chunkID)
		rw.u32(0x10) // AVIIF_KEYFRAME
		rw.u32(offset)
		rw.u32(size)
		offset += frameChunkSize
	}
	return rw.err
}
