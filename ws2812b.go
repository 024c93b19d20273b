// Package ws2812b drives a serial chain of WS2812B addressable RGB LEDs
// through a timer PWM channel fed by a double-buffered DMA transfer.
//
// The driver owns a two-frame ping-pong code buffer. While the transfer
// engine drains one half, the drain interrupt refills the other half with
// the next pixel's pulse codes, then folds into an all-low latch period
// once the pixel string is exhausted. Update, Remaining and Abort form
// the application surface; Irq is the interrupt service entry the
// platform layer must call on every half/full transfer completion.
package ws2812b

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/ws2812b/waveform"
)

var (
	// ErrBusy is returned by Update while a transmission is running.
	ErrBusy = errors.New("ws2812b: transmission already running")
	// ErrNotRunning is returned by Abort when the driver is already idle.
	ErrNotRunning = errors.New("ws2812b: no transmission running")
)

type state int32

const (
	stateIdle state = iota
	stateStreaming
	stateResetting
)

// Opts is the driver configuration.
type Opts struct {
	// TimerClock is the clock feeding the PWM timer. Zero selects the
	// reference 48MHz.
	TimerClock physic.Frequency
}

// Dev is a handle to one WS2812B string.
//
// The pixel slice passed to New is borrowed, not copied: the driver reads
// it while a transmission runs and never writes it. Callers must keep it
// valid and unchanged until Remaining reports zero; mutating it mid-flight
// leaves unspecified which values reach the wire.
type Dev struct {
	eng    Engine
	pixels []Pixel
	timing waveform.Timing

	// Ping-pong code buffer. Exactly one half belongs to the engine at
	// any instant. Irq only ever writes the half it was told is free,
	// which is the sole synchronization between refill and drain.
	queue [waveform.BufferLen]uint32

	// state transitions go through compare-and-swap so that Abort and a
	// concurrent Irq cannot both win; the losing side backs off.
	state  atomic.Int32
	cursor atomic.Uint32 // next pixel while streaming, latch frames emitted while resetting
}

// New prepares a driver for a string of len(pixels) LEDs. The string
// length is fixed for the life of the device. No allocation happens after
// New returns.
func New(e Engine, pixels []Pixel, opts *Opts) (*Dev, error) {
	if e == nil {
		return nil, errors.New("ws2812b: nil engine")
	}
	if len(pixels) == 0 {
		return nil, errors.New("ws2812b: empty pixel string")
	}
	if opts == nil {
		opts = &Opts{}
	}
	t, err := waveform.TimingFor(opts.TimerClock)
	if err != nil {
		return nil, err
	}
	return &Dev{eng: e, pixels: pixels, timing: t}, nil
}

// Update begins one asynchronous transmission of the current pixel
// contents. Progress can be watched with Remaining and canceled with
// Abort. Returns ErrBusy while a previous transmission is still running;
// a rejected Update leaves the string showing its last latched colors.
func (d *Dev) Update() error {
	last := len(d.pixels) - 1

	// A single-pixel string has no second pixel to prefetch: its latch
	// period starts in frame 1 and the streaming phase is skipped.
	next := stateStreaming
	if last == 0 {
		next = stateResetting
	}
	if !d.state.CompareAndSwap(int32(stateIdle), int32(next)) {
		return ErrBusy
	}

	frame0 := d.queue[:waveform.FrameLen]
	frame1 := d.queue[waveform.FrameLen:]
	p := d.pixels[0]
	d.timing.Encode(frame0, p.R, p.G, p.B)
	if last == 0 {
		d.cursor.Store(0)
		waveform.EncodeReset(frame1)
	} else {
		d.cursor.Store(1)
		p = d.pixels[1]
		d.timing.Encode(frame1, p.R, p.G, p.B)
	}

	if err := d.eng.Start(d.queue[:]); err != nil {
		d.state.Store(int32(stateIdle))
		return fmt.Errorf("ws2812b: start waveform output: %w", err)
	}
	return nil
}

// almostDone is reported while the final latch frame is still draining;
// zero is reserved to mean fully idle.
const almostDone = time.Microsecond

// Remaining estimates the time until the running transmission completes.
// It returns 0 once the driver is idle and never increases between drain
// events. The estimate is a polling convenience, not a completion
// guarantee; it truncates to whole microseconds.
func (d *Dev) Remaining() time.Duration {
	cur := int(d.cursor.Load())
	switch state(d.state.Load()) {
	case stateStreaming:
		left := time.Duration(len(d.pixels)-1-cur) * waveform.FrameDuration
		return (left + waveform.ResetHold).Truncate(time.Microsecond)
	case stateResetting:
		left := time.Duration(waveform.ResetFrames-1-cur) * waveform.FrameDuration
		if left <= 0 {
			return almostDone
		}
		return left.Truncate(time.Microsecond)
	default:
		return 0
	}
}

// Abort cancels the running transmission and halts the engine
// immediately. It returns ErrNotRunning if the driver is already idle.
//
// The data line is not guaranteed to idle low long enough to latch, so
// the string may keep showing a partial update until the next completed
// transmission.
func (d *Dev) Abort() error {
	for {
		s := d.state.Load()
		if state(s) == stateIdle {
			return ErrNotRunning
		}
		if d.state.CompareAndSwap(s, int32(stateIdle)) {
			break
		}
	}
	return d.eng.Stop()
}

// Irq services one drain event from the transfer engine. The platform
// interrupt routine must determine which completion fired and call Irq
// before clearing its flags. Irq never blocks and does a bounded amount
// of work per call; it is the sole mutator of the code buffer while a
// transmission is active.
func (d *Dev) Irq(f Frame) {
	if f != Frame0 && f != Frame1 {
		// Unidentifiable completion source. Stop emitting rather than
		// corrupt the waveform.
		d.state.Store(int32(stateIdle))
		d.eng.Stop()
		return
	}
	free := d.queue[int(f)*waveform.FrameLen : (int(f)+1)*waveform.FrameLen]

	switch state(d.state.Load()) {
	case stateIdle:
		// Late or ghost event after an abort; the engine missed the stop.
		d.eng.Stop()

	case stateStreaming:
		if cur := d.cursor.Load(); int(cur) < len(d.pixels)-1 {
			cur++
			d.cursor.Store(cur)
			p := d.pixels[cur]
			d.timing.Encode(free, p.R, p.G, p.B)
		} else if d.state.CompareAndSwap(int32(stateStreaming), int32(stateResetting)) {
			// Every pixel is in flight; start queueing the latch period.
			d.cursor.Store(0)
			waveform.EncodeReset(free)
		}

	case stateResetting:
		if cur := d.cursor.Load(); int(cur) < waveform.ResetFrames-1 {
			d.cursor.Store(cur + 1)
			waveform.EncodeReset(free)
		} else {
			// The last latch frame is already queued. The engine keeps
			// running to drain it; a stray follow-up event lands in the
			// idle branch above and stops it.
			d.state.CompareAndSwap(int32(stateResetting), int32(stateIdle))
		}
	}
}

// Pixels returns the borrowed pixel slice.
func (d *Dev) Pixels() []Pixel {
	return d.pixels
}

// Timing returns the PWM compare values derived from the timer clock.
func (d *Dev) Timing() waveform.Timing {
	return d.timing
}

func (d *Dev) String() string {
	return fmt.Sprintf("ws2812b.Dev{%d}", len(d.pixels))
}

// Halt implements conn.Resource. Unlike Abort it succeeds when idle.
func (d *Dev) Halt() error {
	if err := d.Abort(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return nil
}

var _ conn.Resource = &Dev{}
