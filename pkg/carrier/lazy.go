package carrier

import "fmt"

// Loader produces frame i. It is called at most once per frame by a Lazy.
type Loader func(i int) ([]byte, error)

// Lazy is a frame-based carrier that loads frames on first access and keeps
// them for the lifetime of the carrier.
type Lazy struct {
	count   int
	size    int
	load    Loader
	frames  map[int][]byte
	touched map[int]bool
}

// NewLazy returns a carrier of count frames of size units each.
func NewLazy(count, size int, load Loader) *Lazy {
	return &Lazy{
		count:   count,
		size:    size,
		load:    load,
		frames:  make(map[int][]byte),
		touched: make(map[int]bool),
	}
}

func (l *Lazy) FrameCount() int { return l.count }
func (l *Lazy) FrameSize() int  { return l.size }

func (l *Lazy) Frame(i int) ([]byte, error) {
	if f, ok := l.frames[i]; ok {
		return f, nil
	}
	if i < 0 || i >= l.count {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", i, l.count)
	}
	f, err := l.load(i)
	if err != nil {
		return nil, err
	}
	if len(f) != l.size {
		return nil, fmt.Errorf("frame %d: got %d units, want %d", i, len(f), l.size)
	}
	l.frames[i] = f
	return f, nil
}

// Loaded reports whether frame i has been materialized.
func (l *Lazy) Loaded(i int) bool {
	_, ok := l.frames[i]
	return ok
}

// Touched reports whether an embed wrote into frame i.
func (l *Lazy) Touched(i int) bool { return l.touched[i] }

// Peek returns frame i without caching it when it has not been loaded yet.
// Writers use it to stream untouched frames.
func (l *Lazy) Peek(i int) ([]byte, error) {
	if f, ok := l.frames[i]; ok {
		return f, nil
	}
	if i < 0 || i >= l.count {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", i, l.count)
	}
	return l.load(i)
}

func (l *Lazy) touch(i int) { l.touched[i] = true }

type toucher interface {
	touch(i int)
}
