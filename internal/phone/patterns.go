package phone

import (
	"time"

	"github.com/sweeney/rotary-phone/internal/led"
	"github.com/sweeney/rotary-phone/internal/logic"
)

// PatternFor returns the LED pattern shown in state.
func PatternFor(state logic.CallState) led.Pattern {
	switch state {
	case logic.StateIdle:
		return led.Pattern{Mode: led.ModeRainbow, Color: led.White, Rate: 30 * time.Millisecond, DutyCycle: 128}
	case logic.StateDialing:
		return led.Pattern{Mode: led.ModePulse, Color: led.Yellow, Rate: 10 * time.Millisecond, DutyCycle: 128}
	case logic.StateCalling:
		return led.Pattern{Mode: led.ModePulse, Color: led.Green, Rate: 30 * time.Millisecond, DutyCycle: 128}
	case logic.StateInvalidNumber:
		return led.Pattern{Mode: led.ModeBlink, Color: led.Red, Rate: 500 * time.Millisecond, DutyCycle: 128}
	case logic.StateRinging:
		return led.Pattern{Mode: led.ModeBlink, Color: led.White, Rate: 250 * time.Millisecond, DutyCycle: 128}
	default:
		return led.Pattern{Mode: led.ModeOff, Color: led.Black, Rate: led.DefaultRate, DutyCycle: led.DefaultDutyCycle}
	}
}
