package stego

import (
	"errors"

	"github.com/xob0t/GoStego/pkg/bitframe"
	"github.com/xob0t/GoStego/pkg/carrier"
	"github.com/xob0t/GoStego/pkg/crypt"
)

// Errors returned by Codec operations. Callers match them with errors.Is.
var (
	// ErrCapacityExceeded means the framed message does not fit. The error
	// unwraps to a *CapacityError with the exact counts.
	ErrCapacityExceeded = carrier.ErrCapacity
	// ErrInsufficientFrames means a carrier ran out of frames mid-embed.
	ErrInsufficientFrames = carrier.ErrExhausted
	// ErrInvalidKey means the key is unusable for the selected cipher profile.
	ErrInvalidKey = crypt.ErrInvalidKey
	// ErrDecrypt covers authentication, padding and encoding failures.
	ErrDecrypt = crypt.ErrDecrypt
	// ErrFraming covers malformed frames and unsupported characters.
	ErrFraming = bitframe.ErrFraming
	// ErrCarrierIO wraps open, parse and write failures on carrier files.
	ErrCarrierIO = errors.New("carrier i/o error")
	// ErrUnsupportedMedium is returned for file types no adapter handles.
	ErrUnsupportedMedium = errors.New("unsupported medium")
	// ErrAppendUnsupported is returned when append is requested for audio or images.
	ErrAppendUnsupported = errors.New("append is only supported for video")
)

// CapacityError carries the requested and available bit counts.
type CapacityError = carrier.CapacityError
