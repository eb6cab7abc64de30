// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/rotary-phone/internal/phone"
)

// Topics used by the phone.
const (
	// TopicEvents carries call state, digit, number and handset events.
	TopicEvents = "home/rotary-phone/events"
	// TopicButtons carries front button presses and releases.
	TopicButtons = "home/rotary-phone/buttons"
	// TopicSystem carries lifecycle events.
	TopicSystem = "home/rotary-phone/system"
	// TopicCommand is subscribed for operator commands.
	TopicCommand = "home/rotary-phone/command"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a phone event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event phone.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// TopicFor returns the topic a phone event is published on.
func TopicFor(event phone.Event) string {
	if event.Kind == phone.EventButton {
		return TopicButtons
	}
	return TopicEvents
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Phone PhonePayload `json:"phone"`
}

// PhonePayload contains the phone event details. Only the fields of the
// event kind are present.
type PhonePayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	CallID    string `json:"call_id,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Trigger   string `json:"trigger,omitempty"`
	Number    string `json:"number,omitempty"`
	Audio     string `json:"audio,omitempty"`
	Digit     *int   `json:"digit,omitempty"`
	Handset   string `json:"handset,omitempty"`
	Button    string `json:"button,omitempty"`
	Pressed   *bool  `json:"pressed,omitempty"`
}

// FormatPayload creates the JSON payload for a phone event.
func FormatPayload(event phone.Event) ([]byte, error) {
	p := PhonePayload{
		Timestamp: event.Time.UTC().Format(time.RFC3339),
		Event:     string(event.Kind),
		CallID:    event.CallID,
	}

	switch event.Kind {
	case phone.EventState:
		p.From = event.From.String()
		p.To = event.To.String()
		p.Trigger = event.Trigger.String()
		p.Number = event.Number
		p.Audio = event.AudioPath
	case phone.EventNumber:
		p.Number = event.Number
	case phone.EventDigit:
		d := event.Digit
		p.Digit = &d
	case phone.EventHandset:
		p.Handset = "DOWN"
		if event.HandsetUp {
			p.Handset = "UP"
		}
	case phone.EventButton:
		pressed := event.Pressed
		p.Button = event.Button
		p.Pressed = &pressed
	}

	return json.Marshal(Payload{Phone: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Discard is the Publisher used when no broker is configured.
type Discard struct{}

func (Discard) Publish(phone.Event) error       { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error                    { return nil }
func (Discard) IsConnected() bool               { return false }
