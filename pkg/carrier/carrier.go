// Package carrier exposes a medium's modifiable units as equally sized frames
// and moves bits between their least significant bits and bitstreams.
//
// Audio and images are single-frame carriers. Video is frame based and loaded
// lazily, so extraction can stop as soon as a payload is complete.
package carrier

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacity is matched by *CapacityError.
	ErrCapacity = errors.New("message exceeds carrier capacity")
	// ErrExhausted means the carrier ran out of units in the middle of a write.
	ErrExhausted = errors.New("carrier exhausted")
)

// Carrier is an ordered sequence of frames holding modifiable bytes.
type Carrier interface {
	FrameCount() int
	// FrameSize is the number of units in every frame.
	FrameSize() int
	// Frame returns the mutable units of frame i.
	Frame(i int) ([]byte, error)
}

// Bit returns the least significant bit of b.
func Bit(b byte) byte { return b & 1 }

// SetBit replaces the least significant bit of b.
func SetBit(b, bit byte) byte { return b&^1 | bit&1 }

// Capacity is the number of bits c can hold.
func Capacity(c Carrier) int64 {
	return int64(c.FrameCount()) * int64(c.FrameSize())
}

// CapacityError reports a frame that does not fit.
type CapacityError struct {
	Required  int64
	Available int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%v: need %d bits, have %d", ErrCapacity, e.Required, e.Available)
}

func (e *CapacityError) Unwrap() error { return ErrCapacity }

// CheckCapacity fails with a *CapacityError when bits do not fit in c.
func CheckCapacity(c Carrier, bits int64) error {
	if avail := Capacity(c); bits > avail {
		return &CapacityError{Required: bits, Available: avail}
	}
	return nil
}

// Buffer is a single contiguous frame.
type Buffer struct {
	data []byte
}

// NewBuffer wraps data without copying it.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

func (b *Buffer) FrameCount() int { return 1 }
func (b *Buffer) FrameSize() int  { return len(b.data) }

func (b *Buffer) Frame(i int) ([]byte, error) {
	if i != 0 {
		return nil, fmt.Errorf("frame %d out of range", i)
	}
	return b.data, nil
}

// Bytes returns the underlying storage.
func (b *Buffer) Bytes() []byte { return b.data }
