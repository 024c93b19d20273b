// Package waveform converts pixel channel intensities into the timed
// pulse codes understood by WS2812B-class addressable LEDs.
//
// Each data bit occupies one fixed PWM period on the wire; the high time
// within that period selects between a logical 0 (short pulse) and a
// logical 1 (long pulse). A sustained low period latches the whole string.
package waveform

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/physic"
)

// WS2812B shift registers are 24 bits wide, organized G[8]R[8]B[8]. Two
// pixels worth of codes are kept in flight at any time, one per buffer
// half.
const (
	BitsPerChannel = 8
	Channels       = 3
	FrameLen       = BitsPerChannel * Channels
	BufferFrames   = 2
	BufferLen      = FrameLen * BufferFrames
)

// Datasheet timing. A 0 bit holds the line high for ~400ns of the 1.25µs
// period, a 1 bit for ~800ns. The string latches after 50µs of continuous
// low, which rounds up to two all-zero frames.
const (
	BitPeriod  = 1250 * time.Nanosecond
	ShortPulse = 400 * time.Nanosecond
	LongPulse  = 800 * time.Nanosecond
	ResetHold  = 50 * time.Microsecond

	FrameDuration = FrameLen * BitPeriod
	ResetFrames   = int((ResetHold + FrameDuration - 1) / FrameDuration)
)

// DefaultClock is the timer clock of the reference platform, ~21ns/tick.
const DefaultClock = 48 * physic.MegaHertz

// Timing holds the PWM compare values for one timer clock, in timer ticks.
type Timing struct {
	Short  uint32 // high time encoding a 0 bit
	Long   uint32 // high time encoding a 1 bit
	Period uint32 // full bit period
}

var errClock = errors.New("waveform: timer clock too slow to resolve pulse widths")

// TimingFor derives compare values for a timer running at clk. A zero or
// negative clk selects DefaultClock. Values truncate to whole ticks; at
// 48MHz this yields 19/38/60.
func TimingFor(clk physic.Frequency) (Timing, error) {
	if clk <= 0 {
		clk = DefaultClock
	}
	t := Timing{
		Short:  ticks(ShortPulse, clk),
		Long:   ticks(LongPulse, clk),
		Period: ticks(BitPeriod, clk),
	}
	if t.Short == 0 || t.Short == t.Long {
		return Timing{}, errClock
	}
	return t, nil
}

func ticks(d time.Duration, clk physic.Frequency) uint32 {
	return uint32(int64(d) * int64(clk/physic.Hertz) / int64(time.Second))
}

// Encode writes the pulse codes for one pixel into dst, which must hold
// at least FrameLen codes. Channel transmission order is green, red,
// blue, each byte most significant bit first. The order is fixed by the
// pixel register layout and is not configurable.
func (t Timing) Encode(dst []uint32, r, g, b uint8) {
	t.encodeByte(dst[0:BitsPerChannel], g)
	t.encodeByte(dst[BitsPerChannel:2*BitsPerChannel], r)
	t.encodeByte(dst[2*BitsPerChannel:FrameLen], b)
}

func (t Timing) encodeByte(dst []uint32, v uint8) {
	for i := 0; i < BitsPerChannel; i++ {
		if v&(0x80>>i) != 0 {
			dst[i] = t.Long
		} else {
			dst[i] = t.Short
		}
	}
}

// EncodeReset fills one frame with the always-low code, producing one
// slice of the latch segment.
func EncodeReset(dst []uint32) {
	for i := 0; i < FrameLen; i++ {
		dst[i] = 0
	}
}

// Decode recovers the channel bytes from one encoded frame. Codes at or
// above the midpoint of the two pulse widths read as 1 bits.
func (t Timing) Decode(src []uint32) (r, g, b uint8) {
	g = t.decodeByte(src[0:BitsPerChannel])
	r = t.decodeByte(src[BitsPerChannel : 2*BitsPerChannel])
	b = t.decodeByte(src[2*BitsPerChannel:FrameLen])
	return r, g, b
}

func (t Timing) decodeByte(src []uint32) uint8 {
	mid := (t.Short + t.Long) / 2
	var v uint8
	for i := 0; i < BitsPerChannel; i++ {
		v <<= 1
		if src[i] >= mid {
			v |= 1
		}
	}
	return v
}
