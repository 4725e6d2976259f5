package stego

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xob0t/GoStego/pkg/bitframe"
	"github.com/xob0t/GoStego/pkg/carrier"
)

// EncodeRequest describes one embedding.
type EncodeRequest struct {
	// Carrier is the source file. It is never modified.
	Carrier string
	Message string
	// Key enables encryption when not empty.
	Key string
	// Output is the destination. Its extension is forced to the lossless
	// container of the medium. Empty derives "<carrier>_stego".
	Output string
	// Append adds Message after the message already hidden in Output.
	// Video only.
	Append bool
}

// EncodeResult reports a completed embedding.
type EncodeResult struct {
	Output    string
	Medium    Medium
	FrameBits int64
	Capacity  int64
	// Message is the plaintext that was embedded, including appended text.
	Message string
}

// Encode hides req.Message in a copy of req.Carrier. The output file is
// replaced atomically; on any error it is left as it was.
func (c *Codec) Encode(ctx context.Context, req EncodeRequest) (res *EncodeResult, err error) {
	defer func() {
		if err != nil {
			c.setState(StateFailed)
			c.opts.logger.Error("encode failed", "carrier", req.Carrier, "error", err)
		}
	}()

	c.setState(StateValidating)
	m, err := DetectMedium(req.Carrier)
	if err != nil {
		return nil, err
	}
	if req.Append && m != MediumVideo {
		return nil, fmt.Errorf("%w: %s carrier", ErrAppendUnsupported, m)
	}
	output := OutputPath(m, req.Carrier, req.Output)
	source := req.Carrier
	message := req.Message

	if req.Append {
		if _, statErr := os.Stat(output); statErr == nil {
			prev, decErr := c.decode(ctx, output, req.Key, func(State) {})
			switch {
			case decErr != nil:
				c.opts.logger.Warn("could not read existing message, writing new message only",
					"output", output, "error", decErr)
			case prev != "":
				message = prev + "\n" + message
			}
			source = output
		}
	}

	profile, framing := c.scheme(m)
	text := message
	if req.Key != "" {
		if text, err = profile.Encrypt(req.Key, message); err != nil {
			return nil, fmt.Errorf("encrypt: %w", err)
		}
	}
	bits, err := bitframe.Build(text, framing)
	if err != nil {
		return nil, err
	}

	c.setState(StateTransforming)
	o, err := c.open(source, m)
	if err != nil {
		return nil, err
	}
	defer o.close()

	capacity := carrier.Capacity(o.carrier)
	if err := carrier.CheckCapacity(o.carrier, bits.Len()); err != nil {
		return nil, err
	}
	if err := carrier.Embed(ctx, o.carrier, bits); err != nil {
		if errors.Is(err, carrier.ErrExhausted) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrCarrierIO, err)
	}

	c.setState(StateWriting)
	st, err := c.stage(output, func(w io.Writer) error { return o.write(w, output) })
	if err != nil {
		return nil, err
	}
	// The source may be the output itself; release it before the rename.
	o.close()
	if err := ctx.Err(); err != nil {
		st.discard()
		return nil, err
	}
	if err := st.commit(); err != nil {
		return nil, err
	}

	c.setState(StateDone)
	attrs := []any{
		"medium", m.String(),
		"output", output,
		"framing", framing.Name(),
		"bits", bits.Len(),
		"capacity", capacity,
		"encrypted", req.Key != "",
	}
	if req.Key != "" {
		attrs = append(attrs, "profile", profile.Name())
	}
	c.opts.logger.Info("message embedded", attrs...)

	return &EncodeResult{
		Output:    output,
		Medium:    m,
		FrameBits: bits.Len(),
		Capacity:  capacity,
		Message:   message,
	}, nil
}
