// Package sim provides an in-memory stand-in for the timer/DMA transfer
// path, for package tests and host-side demos.
package sim

import (
	"sync"

	"github.com/coreman2200/ws2812b"
	"github.com/coreman2200/ws2812b/waveform"
)

// Engine implements ws2812b.Engine without hardware. It records Start and
// Stop calls and replays drain events against a driver, snapshotting each
// freed frame exactly as the hardware would have transmitted it.
type Engine struct {
	// StartErr, when set, is returned by the next Start call and cleared.
	StartErr error

	// OnDrain, when set, observes every drained frame before the driver
	// refills it.
	OnDrain func(f ws2812b.Frame, codes []uint32)

	mu      sync.Mutex
	codes   []uint32
	running bool
	starts  int
	stops   int
	frames  [][]uint32
}

// Start implements ws2812b.Engine.
func (e *Engine) Start(codes []uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.StartErr != nil {
		err := e.StartErr
		e.StartErr = nil
		return err
	}
	e.codes = codes
	e.running = true
	e.starts++
	return nil
}

// Stop implements ws2812b.Engine.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.stops++
	return nil
}

// Running reports whether output is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Starts returns how many times Start succeeded.
func (e *Engine) Starts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts
}

// Stops returns how many times Stop was called.
func (e *Engine) Stops() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stops
}

// Codes returns a copy of the code buffer handed to Start, or nil before
// the first Start.
func (e *Engine) Codes() []uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.codes == nil {
		return nil
	}
	out := make([]uint32, len(e.codes))
	copy(out, e.codes)
	return out
}

// TakeFrames returns every frame drained since the last call, in transmit
// order, and clears the record.
func (e *Engine) TakeFrames() [][]uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.frames
	e.frames = nil
	return out
}

// Drain simulates one half/full transfer completion: it snapshots the
// freed frame, then invokes the driver's interrupt entry. Draining a
// stopped engine still delivers the event, which is how a late or ghost
// interrupt is reproduced.
func (e *Engine) Drain(d *ws2812b.Dev, f ws2812b.Frame) {
	e.mu.Lock()
	var snap []uint32
	if e.running && (f == ws2812b.Frame0 || f == ws2812b.Frame1) {
		snap = make([]uint32, waveform.FrameLen)
		copy(snap, e.codes[int(f)*waveform.FrameLen:(int(f)+1)*waveform.FrameLen])
		e.frames = append(e.frames, snap)
	}
	tap := e.OnDrain
	e.mu.Unlock()

	if tap != nil && snap != nil {
		tap(f, snap)
	}
	d.Irq(f)
}

// Playback drives a started transmission to completion, alternating the
// half- and full-complete events the way circular DMA raises them, until
// the driver stops the engine. It returns the number of drain events
// delivered.
func (e *Engine) Playback(d *ws2812b.Dev) int {
	limit := 4 * (len(d.Pixels()) + waveform.ResetFrames + 4)
	n := 0
	f := ws2812b.Frame0
	for e.Running() && n < limit {
		e.Drain(d, f)
		n++
		if f == ws2812b.Frame0 {
			f = ws2812b.Frame1
		} else {
			f = ws2812b.Frame0
		}
	}
	return n
}
