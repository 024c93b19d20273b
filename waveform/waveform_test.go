package waveform

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"
)

func TestTimingForReferenceClock(t *testing.T) {
	tm, err := TimingFor(48 * physic.MegaHertz)
	if err != nil {
		t.Fatalf("timing: %v", err)
	}
	if tm.Short != 19 || tm.Long != 38 || tm.Period != 60 {
		t.Fatalf("got %d/%d/%d ticks, want 19/38/60", tm.Short, tm.Long, tm.Period)
	}
}

func TestTimingForZeroClockUsesDefault(t *testing.T) {
	tm, err := TimingFor(0)
	if err != nil {
		t.Fatalf("timing: %v", err)
	}
	ref, _ := TimingFor(DefaultClock)
	if tm != ref {
		t.Fatalf("got %+v, want default-clock values %+v", tm, ref)
	}
}

func TestTimingForSlowClock(t *testing.T) {
	if _, err := TimingFor(100 * physic.KiloHertz); err == nil {
		t.Fatal("expected error for a clock that cannot resolve the pulse widths")
	}
}

func TestEncodeRedPixel(t *testing.T) {
	tm, _ := TimingFor(DefaultClock)
	dst := make([]uint32, FrameLen)
	tm.Encode(dst, 255, 0, 0)
	for i := 0; i < 8; i++ {
		if dst[i] != tm.Short {
			t.Fatalf("green bit %d = %d, want short (%d)", i, dst[i], tm.Short)
		}
	}
	for i := 8; i < 16; i++ {
		if dst[i] != tm.Long {
			t.Fatalf("red bit %d = %d, want long (%d)", i, dst[i], tm.Long)
		}
	}
	for i := 16; i < 24; i++ {
		if dst[i] != tm.Short {
			t.Fatalf("blue bit %d = %d, want short (%d)", i, dst[i], tm.Short)
		}
	}
}

func TestEncodeBitOrderMSBFirst(t *testing.T) {
	tm, _ := TimingFor(DefaultClock)
	dst := make([]uint32, FrameLen)

	// g=0x80 sets only the first code of the frame.
	tm.Encode(dst, 0, 0x80, 0)
	if dst[0] != tm.Long {
		t.Fatalf("g MSB should be the first code, got %d", dst[0])
	}
	for i := 1; i < FrameLen; i++ {
		if dst[i] != tm.Short {
			t.Fatalf("code %d = %d, want short", i, dst[i])
		}
	}

	// r=0x01 sets only the last code of the red byte.
	tm.Encode(dst, 0x01, 0, 0)
	for i := 0; i < FrameLen; i++ {
		want := tm.Short
		if i == 15 {
			want = tm.Long
		}
		if dst[i] != want {
			t.Fatalf("code %d = %d, want %d", i, dst[i], want)
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	tm, _ := TimingFor(DefaultClock)
	a := make([]uint32, FrameLen)
	b := make([]uint32, FrameLen)
	tm.Encode(a, 0x12, 0x34, 0x56)
	tm.Encode(b, 0x12, 0x34, 0x56)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("code %d differs across identical encodes", i)
		}
		if a[i] != tm.Short && a[i] != tm.Long {
			t.Fatalf("code %d = %d, not a valid pulse width", i, a[i])
		}
	}
}

func TestEncodeReset(t *testing.T) {
	dst := make([]uint32, FrameLen)
	for i := range dst {
		dst[i] = 0xFFFF
	}
	EncodeReset(dst)
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("code %d = %d, want 0", i, v)
		}
	}
}

func TestLatchRoundsToTwoFrames(t *testing.T) {
	if FrameDuration != 30*time.Microsecond {
		t.Fatalf("frame duration = %v, want 30µs", FrameDuration)
	}
	if ResetFrames != 2 {
		t.Fatalf("reset frames = %d, want 2", ResetFrames)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	tm, _ := TimingFor(DefaultClock)
	dst := make([]uint32, FrameLen)
	cases := [][3]uint8{
		{0, 0, 0},
		{255, 255, 255},
		{0x12, 0x34, 0x56},
		{1, 2, 4},
	}
	for _, c := range cases {
		tm.Encode(dst, c[0], c[1], c[2])
		r, g, b := tm.Decode(dst)
		if r != c[0] || g != c[1] || b != c[2] {
			t.Fatalf("round trip %v -> (%d,%d,%d)", c, r, g, b)
		}
	}
}
