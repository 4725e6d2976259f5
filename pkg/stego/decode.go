package stego

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/xob0t/GoStego/pkg/bitframe"
	"github.com/xob0t/GoStego/pkg/carrier"
)

// Decode recovers the message hidden in path. A carrier without a message
// yields an empty string and no error.
func (c *Codec) Decode(ctx context.Context, path, key string) (msg string, err error) {
	defer func() {
		if err != nil {
			c.setState(StateFailed)
		}
	}()
	msg, err = c.decode(ctx, path, key, c.setState)
	if err == nil {
		c.setState(StateDone)
	}
	return msg, err
}

// decode reports progress through state, which may be a no-op when the
// decode is a step of another operation.
func (c *Codec) decode(ctx context.Context, path, key string, state func(State)) (string, error) {
	state(StateValidating)
	m, err := DetectMedium(path)
	if err != nil {
		return "", err
	}

	state(StateTransforming)
	o, err := c.open(path, m)
	if err != nil {
		return "", err
	}
	defer o.close()

	profile, framing := c.scheme(m)
	r := carrier.NewReader(ctx, o.carrier)
	text, err := bitframe.ReadText(r, framing)
	if errors.Is(err, bitframe.ErrNoMessage) {
		c.opts.logger.Debug("no hidden message", "path", path)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	c.opts.logger.Debug("payload extracted",
		"path", path,
		"chars", utf8.RuneCountInString(text),
		"frames_read", r.FramesRead(),
		"frames", o.carrier.FrameCount())

	if text == "" {
		return "", nil
	}
	if key == "" {
		return text, nil
	}
	plain, err := profile.Decrypt(key, text)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}
