// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the phone's GPIO input lines in one pass.
type Reader interface {
	// Read samples every requested line.
	Read() (Sample, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// Sample is one reading of the input lines. Levels holds the raw electrical
// level per BCM pin (true = high). The lines are pulled up, so an idle
// contact reads high and a closed contact reads low.
type Sample struct {
	Levels map[int]bool
}

// Level returns the raw level of pin. Pins not present in the sample read
// high, the pulled-up idle level.
func (s Sample) Level(pin int) bool {
	l, ok := s.Levels[pin]
	if !ok {
		return true
	}
	return l
}

// Active reports whether the contact on pin is closed (line pulled low).
func (s Sample) Active(pin int) bool {
	return !s.Level(pin)
}

// NewSample builds a sample where every pin in lowPins reads low and every
// other pin in pins reads high.
func NewSample(pins []int, lowPins ...int) Sample {
	levels := make(map[int]bool, len(pins))
	for _, p := range pins {
		levels[p] = true
	}
	for _, p := range lowPins {
		levels[p] = false
	}
	return Sample{Levels: levels}
}
