package stego

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// staged is an output written next to its target and not yet renamed over it.
type staged struct {
	tmp    string
	target string
}

// stage writes the output through a uniquely named file in the target's
// directory. On error nothing is left behind.
func (c *Codec) stage(target string, write func(io.Writer) error) (_ *staged, err error) {
	dir, base := filepath.Split(target)
	tmp := filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")

	mode := os.FileMode(0o644)
	if st, err := os.Stat(target); err == nil {
		mode = st.Mode().Perm()
	}
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCarrierIO, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	var out io.Writer = f
	if c.opts.wrapOutput != nil {
		out = c.opts.wrapOutput(out)
	}
	bw := bufio.NewWriterSize(out, 1<<16)
	if err := write(bw); err != nil {
		return nil, fmt.Errorf("%w: write %s: %w", ErrCarrierIO, target, err)
	}
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("%w: write %s: %w", ErrCarrierIO, target, err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("%w: sync %s: %w", ErrCarrierIO, tmp, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: close %s: %w", ErrCarrierIO, tmp, err)
	}
	return &staged{tmp: tmp, target: target}, nil
}

// commit replaces the target with the staged file.
func (s *staged) commit() error {
	if err := os.Rename(s.tmp, s.target); err != nil {
		os.Remove(s.tmp)
		return fmt.Errorf("%w: %w", ErrCarrierIO, err)
	}
	return nil
}

func (s *staged) discard() {
	os.Remove(s.tmp)
}
