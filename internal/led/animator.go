package led

import (
	"image/color"
	"time"
)

// Mode selects how the animator computes frames.
type Mode int

const (
	ModeOff Mode = iota
	ModeConstant
	ModeBlink
	ModePulse
	ModeRainbow
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeConstant:
		return "constant"
	case ModeBlink:
		return "blink"
	case ModePulse:
		return "pulse"
	case ModeRainbow:
		return "rainbow"
	default:
		return "unknown"
	}
}

// Pattern is a complete animator setting.
type Pattern struct {
	Mode      Mode
	Color     color.RGBA
	Rate      time.Duration
	DutyCycle uint8
}

const (
	DefaultRate      = 20 * time.Millisecond
	DefaultDutyCycle = 128

	// pulseStep is the brightness change per pulse frame.
	pulseStep = 2
)

// Animator computes one frame per rate period and hands it to a Renderer.
// It is not safe for concurrent use; the polling loop owns it.
type Animator struct {
	renderer Renderer

	mode  Mode
	color color.RGBA
	rate  time.Duration
	duty  uint8

	lastRender time.Time
	dirty      bool

	hue        uint8
	brightness int
	rising     bool
	blinkOn    bool
	current    color.RGBA
}

// NewAnimator creates an animator that is off, with default rate and duty cycle.
func NewAnimator(r Renderer) *Animator {
	return &Animator{
		renderer: r,
		mode:     ModeOff,
		color:    White,
		rate:     DefaultRate,
		duty:     DefaultDutyCycle,
		rising:   true,
		dirty:    true,
		current:  Black,
	}
}

// Apply sets every pattern field at once and restarts the animation.
func (a *Animator) Apply(p Pattern) {
	a.SetColor(p.Color)
	a.SetRate(p.Rate)
	a.SetDutyCycle(p.DutyCycle)
	a.SetMode(p.Mode)
}

// SetMode switches mode and restarts the animation phase. The next Update
// renders immediately.
func (a *Animator) SetMode(m Mode) {
	a.mode = m
	a.brightness = 0
	a.rising = true
	a.blinkOn = false
	a.dirty = true
}

// SetColor changes the base color of Constant, Blink and Pulse.
func (a *Animator) SetColor(c color.RGBA) {
	a.color = c
	a.dirty = true
}

// SetRate sets the minimum time between renders. Non-positive rates render
// on every Update.
func (a *Animator) SetRate(rate time.Duration) {
	if rate < 0 {
		rate = 0
	}
	a.rate = rate
}

// SetDutyCycle sets the peak brightness of Pulse.
func (a *Animator) SetDutyCycle(duty uint8) {
	a.duty = duty
	if a.brightness > int(duty) {
		a.brightness = int(duty)
	}
}

// Pattern returns the current setting.
func (a *Animator) Pattern() Pattern {
	return Pattern{Mode: a.mode, Color: a.color, Rate: a.rate, DutyCycle: a.duty}
}

// Current returns the last rendered frame.
func (a *Animator) Current() color.RGBA {
	return a.current
}

// Update renders the next frame if rate has elapsed since the last render.
// It reports whether a frame was rendered.
func (a *Animator) Update(now time.Time) (bool, error) {
	if !a.dirty && now.Sub(a.lastRender) < a.rate {
		return false, nil
	}
	a.dirty = false
	a.lastRender = now

	a.current = a.nextFrame()
	if err := a.renderer.Render(a.current); err != nil {
		return true, err
	}
	return true, nil
}

func (a *Animator) nextFrame() color.RGBA {
	switch a.mode {
	case ModeConstant:
		return a.color
	case ModeBlink:
		a.blinkOn = !a.blinkOn
		if a.blinkOn {
			return a.color
		}
		return Black
	case ModePulse:
		a.stepPulse()
		return Scale(a.color, uint8(a.brightness))
	case ModeRainbow:
		c := HSV(a.hue, 255, 255)
		a.hue++
		return c
	default:
		return Black
	}
}

func (a *Animator) stepPulse() {
	if a.rising {
		a.brightness += pulseStep
		if a.brightness >= int(a.duty) {
			a.brightness = int(a.duty)
			a.rising = false
		}
		return
	}
	a.brightness -= pulseStep
	if a.brightness <= 0 {
		a.brightness = 0
		a.rising = true
	}
}
