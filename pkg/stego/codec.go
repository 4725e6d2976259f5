// Package stego hides text messages in the least significant bits of audio,
// image and video carriers and recovers them.
//
// A Codec holds only configuration. Every Encode, Decode and Capacity call
// owns its carrier, temp files and buffers, so a Codec may be shared between
// goroutines.
package stego

import (
	"github.com/xob0t/GoStego/pkg/bitframe"
	"github.com/xob0t/GoStego/pkg/crypt"
)

// State is a step of an Encode or Decode call.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateTransforming
	StateWriting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateTransforming:
		return "transforming"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Codec embeds and extracts messages.
type Codec struct {
	opts options
}

// New returns a Codec configured by opts.
func New(opts ...Option) *Codec {
	o := options{
		logger:   defaultLogger(),
		mode:     ModeModern,
		parallel: 4,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = defaultLogger()
	}
	if o.parallel <= 0 {
		o.parallel = 1
	}
	return &Codec{opts: o}
}

func (c *Codec) setState(s State) {
	if c.opts.onState != nil {
		c.opts.onState(s)
	}
}

// scheme returns the cipher profile and framing used for m.
func (c *Codec) scheme(m Medium) (crypt.Profile, bitframe.Policy) {
	var p crypt.Profile = crypt.EAX{}
	f := bitframe.LengthPrefixed
	if c.opts.mode == ModeLegacy && m == MediumAudio {
		p, f = crypt.ECB{}, bitframe.Terminator
	}
	if c.opts.profile != nil {
		p = c.opts.profile
	}
	if c.opts.framing != nil {
		f = c.opts.framing
	}
	return p, f
}
