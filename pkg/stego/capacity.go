package stego

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/xob0t/GoStego/pkg/bitframe"
	"github.com/xob0t/GoStego/pkg/carrier"
)

// CapacityReport describes how much a carrier can hold.
type CapacityReport struct {
	Path   string
	Medium Medium
	// Bits is the number of carrier units.
	Bits int64
	// Overhead is the number of framing bits for this medium.
	Overhead int64
}

// MessageBytes is the longest unencrypted single-byte message that fits.
func (r CapacityReport) MessageBytes() int64 {
	return max(0, (r.Bits-r.Overhead)/8)
}

// Capacity reports the capacity of the carrier at path.
func (c *Codec) Capacity(ctx context.Context, path string) (CapacityReport, error) {
	m, err := DetectMedium(path)
	if err != nil {
		return CapacityReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return CapacityReport{}, err
	}
	o, err := c.open(path, m)
	if err != nil {
		return CapacityReport{}, err
	}
	defer o.close()

	_, framing := c.scheme(m)
	return CapacityReport{
		Path:     path,
		Medium:   m,
		Bits:     carrier.Capacity(o.carrier),
		Overhead: bitframe.FrameLen(framing, 0),
	}, nil
}

// CapacityAll measures paths concurrently. Reports are in the order of paths.
// The first failure cancels the remaining checks.
func (c *Codec) CapacityAll(ctx context.Context, paths []string) ([]CapacityReport, error) {
	out := make([]CapacityReport, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.parallel)
	for i, p := range paths {
		g.Go(func() error {
			r, err := c.Capacity(ctx, p)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
