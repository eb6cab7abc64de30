//go:build linux

package led

import (
	"fmt"
	"image/color"

	"github.com/warthog618/go-gpiocdev"
)

// onThreshold is the channel value at which a digital LED pin turns on.
const onThreshold = 128

// GPIORenderer drives a common-cathode RGB LED on three GPIO outputs.
// Each channel is on or off; brightness below onThreshold reads as off.
type GPIORenderer struct {
	chip   *gpiocdev.Chip
	lines  *gpiocdev.Lines
	values []int
}

// NewGPIORenderer requests the red, green and blue pins as outputs, initially off.
func NewGPIORenderer(chipName string, red, green, blue int) (*GPIORenderer, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	lines, err := chip.RequestLines([]int{red, green, blue}, gpiocdev.AsOutput(0, 0, 0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request led pins %d/%d/%d: %w", red, green, blue, err)
	}

	return &GPIORenderer{chip: chip, lines: lines, values: make([]int, 3)}, nil
}

// Render sets each channel on or off.
func (g *GPIORenderer) Render(c color.RGBA) error {
	g.values[0] = channel(c.R)
	g.values[1] = channel(c.G)
	g.values[2] = channel(c.B)
	if err := g.lines.SetValues(g.values); err != nil {
		return fmt.Errorf("set led pins: %w", err)
	}
	return nil
}

// Close turns the LED off and returns the pins to inputs.
func (g *GPIORenderer) Close() error {
	var errs []error

	if g.lines != nil {
		if err := g.lines.SetValues([]int{0, 0, 0}); err != nil {
			errs = append(errs, fmt.Errorf("clear led pins: %w", err))
		}
		if err := g.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure led pins: %w", err))
		}
		if err := g.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close led pins: %w", err))
		}
	}
	if g.chip != nil {
		if err := g.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func channel(v uint8) int {
	if v >= onThreshold {
		return 1
	}
	return 0
}
