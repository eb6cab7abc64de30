package logic

import "time"

// PulseDecoder converts the pulse train of one rotary dial into digits.
//
// The rotation line marks a dial rotation (off-rest); the pulse line closes
// once per pulse while the dial returns. A completed rotation publishes
// exactly one digit, read once through TakeDigit.
type PulseDecoder struct {
	pulseWindow time.Duration
	rotation    *Debouncer

	pulseCount int
	dialing    bool
	pulseLevel bool
	lastPulse  time.Time

	digit    int
	hasDigit bool
}

// NewPulseDecoder creates a decoder. Counted pulses must be at least
// pulseWindow apart; the rotation line settles over rotationWindow.
func NewPulseDecoder(pulseWindow, rotationWindow time.Duration, now time.Time) *PulseDecoder {
	return &PulseDecoder{
		pulseWindow: pulseWindow,
		rotation:    NewDebouncer(rotationWindow, false, now),
	}
}

// Update feeds one sample of the rotation and pulse lines.
func (p *PulseDecoder) Update(rotating, pulse bool, now time.Time) {
	if edge, ok := p.rotation.Sample(rotating, now); ok {
		if edge.Level {
			p.pulseCount = 0
			p.dialing = true
			p.hasDigit = false
		} else {
			p.dialing = false
			if p.pulseCount > 0 {
				p.digit = p.pulseCount % 10
				p.hasDigit = true
			}
		}
	}

	closed := pulse && !p.pulseLevel
	p.pulseLevel = pulse
	if !closed || !p.dialing {
		return
	}

	if p.pulseCount > 0 && now.Sub(p.lastPulse) < p.pulseWindow {
		return
	}
	p.pulseCount++
	p.lastPulse = now
}

// TakeDigit returns the digit of the last completed rotation and clears it.
func (p *PulseDecoder) TakeDigit() (int, bool) {
	if !p.hasDigit {
		return 0, false
	}
	p.hasDigit = false
	return p.digit, true
}

// Dialing reports whether the dial is currently off its rest position.
func (p *PulseDecoder) Dialing() bool {
	return p.dialing
}

// PulseCount returns the pulses counted in the current or last rotation.
func (p *PulseDecoder) PulseCount() int {
	return p.pulseCount
}
