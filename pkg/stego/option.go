package stego

import (
	"io"
	"strings"

	"github.com/xob0t/GoStego/pkg/bitframe"
	"github.com/xob0t/GoStego/pkg/crypt"
)

// Mode selects the per-medium cipher and framing defaults.
type Mode int

const (
	// ModeModern uses EAX and length-prefixed framing for every medium.
	ModeModern Mode = iota
	// ModeLegacy reads and writes audio with raw-key ECB and terminator
	// framing, as files from older releases do.
	ModeLegacy
)

func (m Mode) String() string {
	if m == ModeLegacy {
		return "legacy"
	}
	return "modern"
}

// ParseMode resolves "modern" or "legacy" in any case; anything else is modern.
func ParseMode(s string) Mode {
	if strings.EqualFold(s, "legacy") {
		return ModeLegacy
	}
	return ModeModern
}

// options holds the configuration of a Codec.
type options struct {
	logger   Logger
	mode     Mode
	profile  crypt.Profile   // nil: per-medium default
	framing  bitframe.Policy // nil: per-medium default
	tempDir  string          // MP3 transcodes; empty means os.TempDir
	parallel int             // concurrent capacity checks
	onState  func(State)

	// wrapOutput intercepts the staged output stream.
	wrapOutput func(io.Writer) io.Writer
}

// Option configures a Codec.
type Option func(*options)

// WithLogger sets the logger. If not set, the default slog logger is used.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMode selects modern or legacy defaults.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithProfile overrides the cipher profile for every medium.
func WithProfile(p crypt.Profile) Option {
	return func(o *options) {
		o.profile = p
	}
}

// WithFraming overrides the framing policy for every medium.
func WithFraming(p bitframe.Policy) Option {
	return func(o *options) {
		o.framing = p
	}
}

// WithTempDir sets where intermediate WAV files from MP3 carriers go.
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tempDir = dir
	}
}

// WithParallel bounds the number of concurrent capacity checks in CapacityAll.
func WithParallel(n int) Option {
	return func(o *options) {
		o.parallel = n
	}
}

// WithStateHook registers a callback for every state transition. It may be
// called from several goroutines when the Codec is shared.
func WithStateHook(fn func(State)) Option {
	return func(o *options) {
		o.onState = fn
	}
}
