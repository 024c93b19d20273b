package ws2812b

// Engine is the platform transfer path: a timer PWM channel fed by
// circular DMA, or any stand-in honoring the same contract. Start begins
// continuously cycling through codes as a timed pulse stream, raising a
// drain event each time half of the buffer has finished transmitting;
// Stop halts output immediately. Both must be safe to call from interrupt
// context.
type Engine interface {
	Start(codes []uint32) error
	Stop() error
}

// Frame identifies which half of the code buffer a drain event freed.
// The platform interrupt routine maps its half-transfer-complete flag to
// Frame0 and its transfer-complete flag to Frame1; if it can identify
// neither it reports FrameNone.
type Frame int

const (
	Frame0 Frame = iota
	Frame1
	FrameNone
)

func (f Frame) String() string {
	switch f {
	case Frame0:
		return "frame0"
	case Frame1:
		return "frame1"
	default:
		return "none"
	}
}
