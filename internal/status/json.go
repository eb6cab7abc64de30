package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/rotary-phone/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	State          string       `json:"state"`
	Ready          bool         `json:"ready"`
	Handset        string       `json:"handset"`
	Dialing        bool         `json:"dialing"`
	PulseCount     int          `json:"pulse_count"`
	DialBuffer     string       `json:"dial_buffer"`
	LastNumber     string       `json:"last_number,omitempty"`
	IncomingNumber string       `json:"incoming_number,omitempty"`
	CallID         string       `json:"call_id,omitempty"`
	Speaker        string       `json:"speaker"`
	Volume         int          `json:"volume"`
	LED            LEDJSON      `json:"led"`
	Ring           *RingJSON    `json:"ring,omitempty"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	MQTT           MQTTStatus   `json:"mqtt"`
	Counts         CountsJSON   `json:"counts"`
	Network        *NetworkJSON `json:"network,omitempty"`
	Config         ConfigJSON   `json:"config"`
}

// LEDJSON is the active LED pattern.
type LEDJSON struct {
	Mode   string `json:"mode"`
	Color  string `json:"color"`
	RateMs int64  `json:"rate_ms"`
}

// RingJSON describes the ring in progress.
type RingJSON struct {
	Start      string `json:"start"`
	DurationMs int64  `json:"duration_ms"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of the call counters.
type CountsJSON struct {
	Calls         int `json:"calls"`
	Invalid       int `json:"invalid"`
	Incoming      int `json:"incoming"`
	Answered      int `json:"answered"`
	Missed        int `json:"missed"`
	ButtonPresses int `json:"button_presses"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64  `json:"poll_ms"`
	DialTimeoutMs int64  `json:"dial_timeout_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPPort      string `json:"http_port"`
	NumbersDir    string `json:"numbers_dir"`
}

func handsetString(up bool) string {
	if up {
		return "UP"
	}
	return "DOWN"
}

func buildInner(snap Snapshot) StatusInner {
	p := snap.Phone
	state := p.State.String()
	if !snap.Started {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		State:          state,
		Ready:          snap.Started,
		Handset:        handsetString(p.HandsetUp),
		Dialing:        p.Dialing,
		PulseCount:     p.PulseCount,
		DialBuffer:     p.DialBuffer,
		LastNumber:     p.LastNumber,
		IncomingNumber: p.IncomingNumber,
		CallID:         p.CallID,
		Speaker:        p.Speaker.String(),
		Volume:         p.Volume,
		LED: LEDJSON{
			Mode:   p.LED.Mode.String(),
			Color:  fmt.Sprintf("#%02x%02x%02x", p.LED.Color.R, p.LED.Color.G, p.LED.Color.B),
			RateMs: p.LED.Rate.Milliseconds(),
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Calls:         p.Counts.Calls,
			Invalid:       p.Counts.Invalid,
			Incoming:      p.Counts.Incoming,
			Answered:      p.Counts.Answered,
			Missed:        p.Counts.Missed,
			ButtonPresses: p.Counts.ButtonPresses,
		},
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			DialTimeoutMs: snap.Config.DialTimeoutMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPPort:      snap.Config.HTTPPort,
			NumbersDir:    snap.Config.NumbersDir,
		},
	}

	if snap.Started && p.State == logic.StateRinging {
		inner.Ring = &RingJSON{
			Start:      p.RingStart.UTC().Format(time.RFC3339),
			DurationMs: p.RingDuration.Milliseconds(),
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
