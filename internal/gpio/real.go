//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads GPIO from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip   *gpiocdev.Chip
	lines  *gpiocdev.Lines
	pins   []int
	values []int
}

// NewRealReader requests pins on chip as pulled-up inputs.
func NewRealReader(chipName string, pins []int) (*RealReader, error) {
	if len(pins) == 0 {
		return nil, fmt.Errorf("no pins requested")
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	// Dial contacts, handset switch and buttons all short to ground.
	lines, err := chip.RequestLines(pins, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pins %v: %w", pins, err)
	}

	return &RealReader{
		chip:   chip,
		lines:  lines,
		pins:   append([]int(nil), pins...),
		values: make([]int, len(pins)),
	}, nil
}

// Read samples all lines in a single ioctl.
func (r *RealReader) Read() (Sample, error) {
	if err := r.lines.Values(r.values); err != nil {
		return Sample{}, fmt.Errorf("read pins: %w", err)
	}

	levels := make(map[int]bool, len(r.pins))
	for i, pin := range r.pins {
		levels[pin] = r.values[i] != 0
	}
	return Sample{Levels: levels}, nil
}

// Close releases GPIO resources.
// Reconfigures pins to input with pull-down (matching Pi boot defaults) before
// closing so nothing is left driving the lines.
func (r *RealReader) Close() error {
	var errs []error

	if r.lines != nil {
		if err := r.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pins: %w", err))
		}
		if err := r.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pins: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
