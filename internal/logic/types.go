// Package logic contains the pure state machines of the rotary phone:
// debouncing, pulse decoding, dial sessions, the call state machine and the
// button array. This package has NO external dependencies (no GPIO, MQTT, OS,
// or time.Sleep). Time is always injectable via time.Time parameters.
package logic

import "time"

// MaxDigits bounds the number buffer of a dial session.
const MaxDigits = 16

// CallState is the state of the call state machine.
type CallState int

const (
	StateIdle CallState = iota
	StateDialing
	StateCalling
	StateInvalidNumber
	StateRinging
)

func (s CallState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateDialing:
		return "DIALING"
	case StateCalling:
		return "CALLING"
	case StateInvalidNumber:
		return "INVALID_NUMBER"
	case StateRinging:
		return "RINGING"
	default:
		return "UNKNOWN"
	}
}

// Transition describes an actual state change of the call state machine.
type Transition struct {
	From    CallState
	To      CallState
	Trigger Trigger
	// Number is the last dialed (or incoming) number at the time of the change.
	Number string
	// AudioPath is the resolved recording when entering StateCalling.
	AudioPath string
	Time      time.Time
}

// Edge is a stable level change reported by a Debouncer.
type Edge struct {
	Level bool
	Time  time.Time
}

// DialInput is one sample of the logical phone lines.
// All fields are already converted from raw GPIO levels (active = true).
type DialInput struct {
	HandsetUp bool // hook switch released
	Rotating  bool // dial off its rest position
	Pulse     bool // pulse contact closed
}

// DialEventType identifies what a dial session reported.
type DialEventType string

const (
	DialHandset DialEventType = "HANDSET"
	DialDigit   DialEventType = "DIGIT"
	DialNumber  DialEventType = "NUMBER"
)

// DialEvent is emitted by a DialSession.
type DialEvent struct {
	Type      DialEventType
	Time      time.Time
	HandsetUp bool   // DialHandset only
	Digit     int    // DialDigit only
	Number    string // DialNumber only
}

// ButtonEvent is a debounced press or release of a named button.
type ButtonEvent struct {
	Name    string
	Pressed bool
	Time    time.Time
}

// PinLevels exposes raw pin levels of one hardware sample.
type PinLevels interface {
	Level(pin int) bool
}

// Directory resolves dialed numbers to recordings.
type Directory interface {
	Lookup(number string) (path string, ok bool)
}

// Audio is the part of the audio player the call state machine drives.
type Audio interface {
	Stop()
	IsPlaying() bool
}

// Random supplies the ring duration jitter.
type Random interface {
	// Uniform returns an integer in [min, max].
	Uniform(min, max int64) int64
}

// Listener receives call state machine notifications.
type Listener interface {
	StateChanged(t Transition)
	DigitDialed(digit int, now time.Time)
	NumberDialed(number string, now time.Time)
	HandsetChanged(up bool, now time.Time)
}
