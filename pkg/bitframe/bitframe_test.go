package bitframe

import (
	"errors"
	"strings"
	"testing"
)

func TestPackText(t *testing.T) {
	b, err := EncodeText("Hi")
	if err != nil {
		t.Fatalf("EncodeText: %v", err)
	}
	bits := Pack(b)
	if got, want := bits.String(), "0100100001101001"; got != want {
		t.Errorf("Pack(Hi) = %s, want %s", got, want)
	}
	if bits.Len() != 16 {
		t.Errorf("Len = %d, want 16", bits.Len())
	}
}

func TestEncodeTextRejectsWideRunes(t *testing.T) {
	if _, err := EncodeText("héllo ÿ"); err != nil {
		t.Fatalf("latin-1 text rejected: %v", err)
	}
	_, err := EncodeText("snow ☃")
	if !errors.Is(err, ErrUnsupportedChar) {
		t.Fatalf("err = %v, want ErrUnsupportedChar", err)
	}
	if !errors.Is(err, ErrFraming) {
		t.Errorf("ErrUnsupportedChar should wrap ErrFraming")
	}
}

func TestDecodeTextLatin1(t *testing.T) {
	b, err := EncodeText("café")
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 4 {
		t.Fatalf("len = %d, want 4 single-byte codes", len(b))
	}
	if got := DecodeText(b); got != "café" {
		t.Errorf("DecodeText = %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	messages := []string{"", "a", "Secret Message", strings.Repeat("xyz", 100), "tab\tnew\nline ~"}
	for _, p := range []Policy{Terminator, LengthPrefixed} {
		for _, msg := range messages {
			t.Run(p.Name(), func(t *testing.T) {
				bits, err := Build(msg, p)
				if err != nil {
					t.Fatalf("Build: %v", err)
				}
				if bits.Len() != FrameLen(p, len(msg)) {
					t.Errorf("frame len = %d, want %d", bits.Len(), FrameLen(p, len(msg)))
				}
				got, err := ReadText(NewSource(bits), p)
				if err != nil {
					t.Fatalf("ReadText: %v", err)
				}
				if got != msg {
					t.Errorf("round trip = %q, want %q", got, msg)
				}
			})
		}
	}
}

func TestTerminatorFrameLayout(t *testing.T) {
	bits := Terminator.Frame([]byte("A"))
	if got, want := bits.String(), "0100000100000000"; got != want {
		t.Errorf("frame = %s, want %s", got, want)
	}
}

func TestLengthFrameLayout(t *testing.T) {
	bits := LengthPrefixed.Frame([]byte("A"))
	want := strings.Repeat("0", 60) + "1000" + "01000001"
	if got := bits.String(); got != want {
		t.Errorf("frame = %s, want %s", got, want)
	}
}

func TestTerminatorStopsAtZeroGroup(t *testing.T) {
	// Payload, terminator, then trailing noise that must be ignored.
	bits := Pack([]byte{'o', 'k', 0, 'x', 'y'})
	got, err := ReadText(NewSource(bits), Terminator)
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" {
		t.Errorf("got %q, want ok", got)
	}
}

func TestTerminatorExhaustedWithoutMarker(t *testing.T) {
	got, err := ReadText(NewSource(Pack([]byte("abc"))), Terminator)
	if err != nil {
		t.Fatal(err)
	}
	if got != "abc" {
		t.Errorf("got %q, want abc", got)
	}
}

func TestNoMessage(t *testing.T) {
	tests := []struct {
		name string
		bits Bits
		p    Policy
	}{
		{"terminator short", Bits{buf: []byte{0xff}, n: 5}, Terminator},
		{"length short header", Pack(make([]byte, 7)), LengthPrefixed},
		{"length noise header", Pack([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 'a'}), LengthPrefixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadText(NewSource(tt.bits), tt.p)
			if !errors.Is(err, ErrNoMessage) {
				t.Errorf("err = %v, want ErrNoMessage", err)
			}
		})
	}
}

func TestLengthNotByteAligned(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 0, 0, 0, 12, 'a', 'b'}
	_, err := ReadText(NewSource(Pack(buf)), LengthPrefixed)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
	if !errors.Is(err, ErrFraming) {
		t.Errorf("ErrTruncated should wrap ErrFraming")
	}
}

func TestLengthReadsOnlyAnnouncedBits(t *testing.T) {
	frame := LengthPrefixed.Frame([]byte("hey"))
	buf := append(append([]byte{}, frame.Bytes()...), "trailing"...)
	src := NewSource(Pack(buf))
	payload, err := LengthPrefixed.Read(src)
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "hey" {
		t.Errorf("payload = %q", payload)
	}
	if src.Remaining() != int64(len("trailing"))*8 {
		t.Errorf("remaining = %d, reader consumed past the payload", src.Remaining())
	}
}

func TestLookup(t *testing.T) {
	for name, want := range map[string]Policy{"length": LengthPrefixed, "terminator": Terminator, "": LengthPrefixed} {
		got, err := Lookup(name)
		if err != nil || got != want {
			t.Errorf("Lookup(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := Lookup("morse"); err == nil {
		t.Error("Lookup(morse) should fail")
	}
}

func TestWriter(t *testing.T) {
	w := NewWriter(0)
	for _, c := range "101" {
		w.Put(byte(c - '0'))
	}
	if w.Len() != 3 || w.Bits().String() != "101" {
		t.Errorf("writer = %s (%d)", w.Bits(), w.Len())
	}
	if w.Bits().Bytes()[0] != 0xA0 {
		t.Errorf("packed = %#x, want 0xa0", w.Bits().Bytes()[0])
	}
}
