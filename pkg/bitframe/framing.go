// Terminator and length-prefixed frame policies.
package bitframe

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// BitSource yields bits in carrier traversal order.
type BitSource interface {
	// ReadBits returns up to n bits. A short result means the source is exhausted.
	ReadBits(n int64) (Bits, error)
	// Remaining reports how many bits are left.
	Remaining() int64
}

// Policy frames payload bytes and reads them back.
type Policy interface {
	Name() string
	Frame(payload []byte) Bits
	// Overhead is the number of framing bits added to the payload.
	Overhead() int64
	Read(src BitSource) ([]byte, error)
}

// Policies by name.
var (
	Terminator     Policy = terminator{}
	LengthPrefixed Policy = lengthPrefixed{}
)

// Lookup resolves a policy by name ("length" or "terminator").
func Lookup(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "length", "length-prefixed", "":
		return LengthPrefixed, nil
	case "terminator", "null":
		return Terminator, nil
	default:
		return nil, fmt.Errorf("unknown framing %q (use length or terminator)", name)
	}
}

// FrameLen returns the framed bit length of an n-byte payload.
func FrameLen(p Policy, n int) int64 {
	return int64(n)*8 + p.Overhead()
}

type terminator struct{}

func (terminator) Name() string    { return "terminator" }
func (terminator) Overhead() int64 { return 8 }

func (terminator) Frame(payload []byte) Bits {
	buf := make([]byte, len(payload)+1)
	copy(buf, payload)
	return Pack(buf)
}

// Read collects 8-bit groups until a zero group or the end of the source.
// A zero byte inside the payload ends it early; that collision is not detected.
func (terminator) Read(src BitSource) ([]byte, error) {
	var out []byte
	for {
		g, err := src.ReadBits(8)
		if err != nil {
			return nil, err
		}
		if g.Len() < 8 {
			if out == nil {
				return nil, ErrNoMessage
			}
			return out, nil
		}
		c := g.Bytes()[0]
		if c == 0 {
			if out == nil {
				out = []byte{}
			}
			return out, nil
		}
		out = append(out, c)
	}
}

type lengthPrefixed struct{}

const lengthHeaderBits = 64

func (lengthPrefixed) Name() string    { return "length" }
func (lengthPrefixed) Overhead() int64 { return lengthHeaderBits }

func (lengthPrefixed) Frame(payload []byte) Bits {
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(buf, uint64(len(payload))*8)
	copy(buf[8:], payload)
	return Pack(buf)
}

// Read consumes the header and then exactly the announced number of bits.
func (lengthPrefixed) Read(src BitSource) ([]byte, error) {
	h, err := src.ReadBits(lengthHeaderBits)
	if err != nil {
		return nil, err
	}
	if h.Len() < lengthHeaderBits {
		return nil, ErrNoMessage
	}
	n := binary.BigEndian.Uint64(h.Bytes())
	// A header announcing more bits than the carrier holds is LSB noise.
	if n > uint64(src.Remaining()) {
		return nil, ErrNoMessage
	}
	if n%8 != 0 {
		return nil, fmt.Errorf("%w: header announces %d bits", ErrTruncated, n)
	}
	p, err := src.ReadBits(int64(n))
	if err != nil {
		return nil, err
	}
	if p.Len() < int64(n) {
		return nil, fmt.Errorf("%w: got %d of %d bits", ErrTruncated, p.Len(), n)
	}
	return p.Bytes(), nil
}
