package bitframe

// memSource reads from an in-memory bitstream.
type memSource struct {
	bits Bits
	pos  int64
}

// NewSource returns a BitSource over bits.
func NewSource(bits Bits) BitSource {
	return &memSource{bits: bits}
}

func (s *memSource) Remaining() int64 { return s.bits.n - s.pos }

func (s *memSource) ReadBits(n int64) (Bits, error) {
	n = min(n, s.Remaining())
	w := NewWriter(n)
	for i := int64(0); i < n; i++ {
		w.Put(s.bits.At(s.pos + i))
	}
	s.pos += n
	return w.Bits(), nil
}

// Writer packs bits MSB-first.
type Writer struct {
	buf []byte
	n   int64
}

// NewWriter returns a Writer with room for hint bits.
func NewWriter(hint int64) *Writer {
	return &Writer{buf: make([]byte, 0, (hint+7)/8)}
}

// Put appends one bit (only the low bit of b is used).
func (w *Writer) Put(b byte) {
	if w.n&7 == 0 {
		w.buf = append(w.buf, 0)
	}
	w.buf[len(w.buf)-1] |= (b & 1) << (7 - uint(w.n&7))
	w.n++
}

// Len returns the number of bits written.
func (w *Writer) Len() int64 { return w.n }

// Bits returns the packed result.
func (w *Writer) Bits() Bits { return Bits{buf: w.buf, n: w.n} }
