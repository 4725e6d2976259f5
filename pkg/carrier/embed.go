package carrier

import (
	"context"
	"fmt"

	"github.com/xob0t/GoStego/pkg/bitframe"
)

// Embed writes bits into the LSBs of c in traversal order. Units after the
// last bit and frames after the last touched one are left alone.
//
// Callers check capacity first; a short carrier fails with ErrExhausted after
// a partial write.
func Embed(ctx context.Context, c Carrier, bits bitframe.Bits) error {
	n := bits.Len()
	var pos int64
	for i := 0; pos < n; i++ {
		if i >= c.FrameCount() {
			return fmt.Errorf("%w: wrote %d of %d bits", ErrExhausted, pos, n)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := c.Frame(i)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		k := min(int64(len(f)), n-pos)
		for j := int64(0); j < k; j++ {
			f[j] = SetBit(f[j], bits.At(pos+j))
		}
		pos += k
		if t, ok := c.(toucher); ok {
			t.touch(i)
		}
	}
	return nil
}

// Reader extracts LSBs from a carrier. It implements bitframe.BitSource and
// loads frames only when the read position reaches them.
type Reader struct {
	ctx       context.Context
	c         Carrier
	next      int
	cur       []byte
	off       int
	remaining int64
}

// NewReader returns a Reader positioned at the first unit of c.
func NewReader(ctx context.Context, c Carrier) *Reader {
	return &Reader{ctx: ctx, c: c, remaining: Capacity(c)}
}

// Remaining reports how many bits are left.
func (r *Reader) Remaining() int64 { return r.remaining }

// FramesRead reports how many frames were loaded so far.
func (r *Reader) FramesRead() int { return r.next }

func (r *Reader) ReadBits(n int64) (bitframe.Bits, error) {
	n = min(max(n, 0), r.remaining)
	w := bitframe.NewWriter(n)
	for w.Len() < n {
		if r.off >= len(r.cur) {
			if err := r.ctx.Err(); err != nil {
				return bitframe.Bits{}, err
			}
			f, err := r.c.Frame(r.next)
			if err != nil {
				return bitframe.Bits{}, fmt.Errorf("frame %d: %w", r.next, err)
			}
			r.next++
			r.cur, r.off = f, 0
			continue
		}
		w.Put(Bit(r.cur[r.off]))
		r.off++
	}
	r.remaining -= n
	return w.Bits(), nil
}

var _ bitframe.BitSource = (*Reader)(nil)
