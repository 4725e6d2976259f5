// Package bitframe turns message text into embeddable bitstreams and back.
//
// Text is framed one byte per character, MSB first. Two framing policies tell a
// decoder where the payload ends: a trailing zero byte (Terminator) or a 64-bit
// big-endian bit-length header (LengthPrefixed).
package bitframe

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrFraming is the base error for malformed bit layouts.
	ErrFraming = errors.New("framing error")
	// ErrTruncated means the payload ends inside a character.
	ErrTruncated = fmt.Errorf("%w: truncated payload", ErrFraming)
	// ErrUnsupportedChar means the text holds a code point above 255.
	ErrUnsupportedChar = fmt.Errorf("%w: character outside the single-byte range", ErrFraming)
	// ErrNoMessage means the bits cannot hold a frame. It is a valid outcome,
	// not a failure.
	ErrNoMessage = errors.New("no hidden message")
)

// Bits is a packed bitstream. Bit i lives in buf[i/8] at position 7-i%8.
type Bits struct {
	buf []byte
	n   int64
}

// Pack wraps whole bytes as a bitstream of len(b)*8 bits.
func Pack(b []byte) Bits {
	return Bits{buf: b, n: int64(len(b)) * 8}
}

// Len returns the number of bits.
func (b Bits) Len() int64 { return b.n }

// At returns bit i as 0 or 1.
func (b Bits) At(i int64) byte {
	return (b.buf[i>>3] >> (7 - uint(i&7))) & 1
}

// Bytes returns the packed storage. A trailing partial byte is zero-filled.
func (b Bits) Bytes() []byte { return b.buf }

// String renders the bits as '0'/'1' characters.
func (b Bits) String() string {
	out := make([]byte, b.n)
	for i := int64(0); i < b.n; i++ {
		out[i] = '0' + b.At(i)
	}
	return string(out)
}

// EncodeText maps each character to its single-byte code.
func EncodeText(text string) ([]byte, error) {
	out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedChar, err)
	}
	return out, nil
}

// DecodeText maps single-byte codes back to characters.
func DecodeText(b []byte) string {
	out := make([]rune, len(b))
	for i, c := range b {
		out[i] = rune(c)
	}
	return string(out)
}

// Build encodes text and frames it with p.
func Build(text string, p Policy) (Bits, error) {
	b, err := EncodeText(text)
	if err != nil {
		return Bits{}, err
	}
	return p.Frame(b), nil
}

// ReadText reads one frame from src and decodes its characters. It stops
// pulling bits as soon as the frame is complete.
func ReadText(src BitSource, p Policy) (string, error) {
	payload, err := p.Read(src)
	if err != nil {
		return "", err
	}
	return DecodeText(payload), nil
}
