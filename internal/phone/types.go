// Package phone wires the call state machine to the phone's sound, light
// and buttons. A Controller is driven by one Tick per polling loop
// iteration and is not safe for concurrent use.
package phone

import (
	"time"

	"github.com/sweeney/rotary-phone/internal/logic"
)

// EventKind identifies what a phone Event reports.
type EventKind string

const (
	EventState   EventKind = "STATE"
	EventDigit   EventKind = "DIGIT"
	EventNumber  EventKind = "NUMBER"
	EventHandset EventKind = "HANDSET"
	EventButton  EventKind = "BUTTON"
)

// Event is something observable that happened during a Tick or command.
// Only the fields of its Kind are set.
type Event struct {
	Kind   EventKind
	Time   time.Time
	CallID string

	// EventState
	From      logic.CallState
	To        logic.CallState
	Trigger   logic.Trigger
	AudioPath string

	// EventState, EventNumber
	Number string

	// EventDigit
	Digit int

	// EventHandset
	HandsetUp bool

	// EventButton
	Button  string
	Pressed bool
}

// Counts are the controller's running totals since startup.
type Counts struct {
	Calls         int // outgoing calls to a known number
	Invalid       int
	Incoming      int
	Answered      int
	Missed        int
	ButtonPresses int
}

// HeartbeatData is returned by CheckHeartbeat.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}

// SpeakerMode selects which volume parameter applies to calls.
type SpeakerMode int

const (
	SpeakerSilent SpeakerMode = iota
	SpeakerNormal
	SpeakerLoud
)

func (m SpeakerMode) String() string {
	switch m {
	case SpeakerSilent:
		return "SILENT"
	case SpeakerNormal:
		return "NORMAL"
	case SpeakerLoud:
		return "SPEAKER"
	default:
		return "UNKNOWN"
	}
}

// Next cycles Silent -> Normal -> Speaker -> Silent.
func (m SpeakerMode) Next() SpeakerMode {
	return (m + 1) % 3
}
