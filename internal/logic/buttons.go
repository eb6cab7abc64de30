package logic

import (
	"errors"
	"time"
)

// ErrDuplicateButton is returned when a button name is registered twice.
var ErrDuplicateButton = errors.New("button already registered")

// ButtonArray debounces a set of named front-panel buttons.
// Buttons are wired active-low with pull-ups; inverted flips that polarity.
type ButtonArray struct {
	window  time.Duration
	buttons map[string]*buttonRecord
	order   []string
}

type buttonRecord struct {
	pin      int
	inverted bool
	deb      *Debouncer // nil until the first poll seeds it
}

// NewButtonArray creates an empty array with a shared debounce window.
func NewButtonArray(window time.Duration) *ButtonArray {
	return &ButtonArray{
		window:  window,
		buttons: make(map[string]*buttonRecord),
	}
}

// Add registers a button. Its stable state is seeded from the first poll,
// so a button held at startup does not report a press.
func (a *ButtonArray) Add(name string, pin int, inverted bool) error {
	if _, exists := a.buttons[name]; exists {
		return ErrDuplicateButton
	}
	a.buttons[name] = &buttonRecord{pin: pin, inverted: inverted}
	a.order = append(a.order, name)
	return nil
}

// Poll samples every button in registration order and returns the stable
// edges.
func (a *ButtonArray) Poll(pins PinLevels, now time.Time) []ButtonEvent {
	var events []ButtonEvent
	for _, name := range a.order {
		b := a.buttons[name]
		pressed := b.read(pins)
		if b.deb == nil {
			b.deb = NewDebouncer(a.window, pressed, now)
			continue
		}
		if edge, ok := b.deb.Sample(pressed, now); ok {
			events = append(events, ButtonEvent{Name: name, Pressed: edge.Level, Time: now})
		}
	}
	return events
}

// IsPressed returns the last stable state of a button. found is false for
// unknown names.
func (a *ButtonArray) IsPressed(name string) (pressed bool, found bool) {
	b, ok := a.buttons[name]
	if !ok {
		return false, false
	}
	if b.deb == nil {
		return false, true
	}
	return b.deb.Stable(), true
}

func (b *buttonRecord) read(pins PinLevels) bool {
	pressed := !pins.Level(b.pin)
	if b.inverted {
		return !pressed
	}
	return pressed
}
