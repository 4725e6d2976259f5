package carrier

import (
	"context"
	"errors"
	"testing"

	"github.com/xob0t/GoStego/pkg/bitframe"
)

func TestSetBit(t *testing.T) {
	tests := []struct {
		in, bit, want byte
	}{
		{0x00, 1, 0x01},
		{0x01, 0, 0x00},
		{0xFE, 1, 0xFF},
		{0xFF, 0, 0xFE},
		{0x80, 0, 0x80},
	}
	for _, tt := range tests {
		if got := SetBit(tt.in, tt.bit); got != tt.want {
			t.Errorf("SetBit(%#x, %d) = %#x, want %#x", tt.in, tt.bit, got, tt.want)
		}
	}
}

func TestCapacity(t *testing.T) {
	if got := Capacity(NewBuffer(make([]byte, 300))); got != 300 {
		t.Errorf("buffer capacity = %d", got)
	}
	v := NewLazy(10, 4*4*3, func(int) ([]byte, error) { return make([]byte, 48), nil })
	if got := Capacity(v); got != 480 {
		t.Errorf("video capacity = %d", got)
	}
	if err := CheckCapacity(v, 480); err != nil {
		t.Errorf("exact fit: %v", err)
	}
	err := CheckCapacity(v, 481)
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("err = %v, want ErrCapacity", err)
	}
	var ce *CapacityError
	if !errors.As(err, &ce) || ce.Required != 481 || ce.Available != 480 {
		t.Errorf("capacity error = %+v", ce)
	}
}

func TestEmbedAndRead(t *testing.T) {
	payload := bitframe.Pack([]byte("Hi"))
	buf := make([]byte, 20)
	for i := range buf {
		buf[i] = 0xAA
	}
	c := NewBuffer(buf)
	if err := Embed(context.Background(), c, payload); err != nil {
		t.Fatal(err)
	}
	for i := 16; i < 20; i++ {
		if buf[i] != 0xAA {
			t.Errorf("unit %d past the payload changed to %#x", i, buf[i])
		}
	}
	r := NewReader(context.Background(), c)
	got, err := r.ReadBits(16)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != payload.String() {
		t.Errorf("read %s, want %s", got, payload)
	}
	if r.Remaining() != 4 {
		t.Errorf("remaining = %d", r.Remaining())
	}
	rest, _ := r.ReadBits(100)
	if rest.Len() != 4 {
		t.Errorf("short read = %d bits", rest.Len())
	}
}

func TestEmbedExhausted(t *testing.T) {
	c := NewBuffer(make([]byte, 7))
	err := Embed(context.Background(), c, bitframe.Pack([]byte{0xFF}))
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("err = %v, want ErrExhausted", err)
	}
}

func TestLazySpansFrames(t *testing.T) {
	loads := 0
	v := NewLazy(5, 6, func(int) ([]byte, error) {
		loads++
		return make([]byte, 6), nil
	})
	bits := bitframe.Pack([]byte{0xF0, 0x0F}) // 16 bits over frames 0..2
	if err := Embed(context.Background(), v, bits); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		want := i < 3
		if v.Touched(i) != want || v.Loaded(i) != want {
			t.Errorf("frame %d touched=%v loaded=%v, want %v", i, v.Touched(i), v.Loaded(i), want)
		}
	}
	if loads != 3 {
		t.Errorf("loader called %d times", loads)
	}

	r := NewReader(context.Background(), v)
	got, _ := r.ReadBits(16)
	if got.String() != bits.String() {
		t.Errorf("read %s, want %s", got, bits)
	}
	if r.FramesRead() != 3 || loads != 3 {
		t.Errorf("frames read = %d, loads = %d", r.FramesRead(), loads)
	}
}

func TestReaderEarlyExit(t *testing.T) {
	v := NewLazy(100, 64, func(int) ([]byte, error) { return make([]byte, 64), nil })
	r := NewReader(context.Background(), v)
	if _, err := bitframe.LengthPrefixed.Read(r); err != nil {
		t.Fatal(err)
	}
	// An all-zero header announces an empty payload.
	if r.FramesRead() != 1 {
		t.Errorf("frames read = %d, want 1", r.FramesRead())
	}
	if v.Loaded(1) {
		t.Error("frame 1 loaded after the payload ended")
	}
}

func TestLazyFrameSizeMismatch(t *testing.T) {
	v := NewLazy(2, 8, func(int) ([]byte, error) { return make([]byte, 4), nil })
	if _, err := v.Frame(0); err == nil {
		t.Error("short frame should fail")
	}
	if _, err := v.Frame(2); err == nil {
		t.Error("out of range frame should fail")
	}
}

func TestPeekDoesNotCache(t *testing.T) {
	v := NewLazy(2, 1, func(i int) ([]byte, error) { return []byte{byte(i)}, nil })
	if f, _ := v.Peek(1); f[0] != 1 {
		t.Errorf("peek = %v", f)
	}
	if v.Loaded(1) {
		t.Error("peek cached the frame")
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewBuffer(make([]byte, 16))
	if err := Embed(ctx, c, bitframe.Pack([]byte{1})); !errors.Is(err, context.Canceled) {
		t.Errorf("embed err = %v", err)
	}
	if _, err := NewReader(ctx, c).ReadBits(8); !errors.Is(err, context.Canceled) {
		t.Errorf("read err = %v", err)
	}
}
