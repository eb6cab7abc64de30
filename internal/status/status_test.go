package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/rotary-phone/internal/led"
	"github.com/sweeney/rotary-phone/internal/logic"
	"github.com/sweeney/rotary-phone/internal/phone"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func idleStatus() phone.Status {
	return phone.Status{
		State:   logic.StateIdle,
		Speaker: phone.SpeakerNormal,
		Volume:  50,
		LED:     phone.PatternFor(logic.StateIdle),
	}
}

func TestNewTracker(t *testing.T) {
	cfg := Config{PollMs: 5, DialTimeoutMs: 3000, Broker: "tcp://localhost:1883"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	assert.Equal(t, start, snap.StartTime)
	assert.Equal(t, cfg, snap.Config)
	assert.False(t, snap.Started)
	assert.False(t, snap.MQTTConnected)
	assert.Nil(t, snap.Network)
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, Config{})
	st := idleStatus()
	st.Counts.Calls = 3
	tr.Update(st)

	snap := tr.Snapshot()
	assert.True(t, snap.Started)
	assert.Equal(t, logic.StateIdle, snap.Phone.State)
	assert.Equal(t, 3, snap.Phone.Counts.Calls)
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.SetMQTTConnected(true)
	assert.True(t, tr.Snapshot().MQTTConnected)
	tr.SetMQTTConnected(false)
	assert.False(t, tr.Snapshot().MQTTConnected)
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "10.0.0.2"})
	snap := tr.Snapshot()
	require.NotNil(t, snap.Network)
	assert.Equal(t, "10.0.0.2", snap.Network.IP)
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, snap.Uptime())
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	before := time.Now()
	snap := tr.Snapshot()
	assert.False(t, snap.Now.Before(before))
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.Update(idleStatus())
	snap := tr.Snapshot()

	st := idleStatus()
	st.State = logic.StateDialing
	tr.Update(st)

	assert.Equal(t, logic.StateIdle, snap.Phone.State)
}

func TestFormatJSON(t *testing.T) {
	st := idleStatus()
	st.State = logic.StateDialing
	st.HandsetUp = true
	st.Dialing = true
	st.DialBuffer = "12"
	st.PulseCount = 2
	st.LastNumber = "42"
	st.CallID = "call-1"
	st.LED = phone.PatternFor(logic.StateDialing)
	st.Counts = phone.Counts{Calls: 5, Invalid: 1, Incoming: 2, Answered: 1, Missed: 1, ButtonPresses: 7}

	snap := Snapshot{
		Phone:         st,
		Started:       true,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 5, DialTimeoutMs: 3000, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPPort: ":80", NumbersDir: "/numbers"},
	}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &parsed))
	s := parsed.Status

	assert.Equal(t, "DIALING", s.State)
	assert.True(t, s.Ready)
	assert.Equal(t, "UP", s.Handset)
	assert.True(t, s.Dialing)
	assert.Equal(t, "12", s.DialBuffer)
	assert.Equal(t, 2, s.PulseCount)
	assert.Equal(t, "42", s.LastNumber)
	assert.Equal(t, "call-1", s.CallID)
	assert.Equal(t, "NORMAL", s.Speaker)
	assert.Equal(t, 50, s.Volume)
	assert.Equal(t, LEDJSON{Mode: "pulse", Color: "#ffff00", RateMs: 10}, s.LED)
	assert.Nil(t, s.Ring)
	assert.Equal(t, int64(900), s.UptimeSeconds)
	assert.True(t, s.MQTT.Connected)
	assert.Equal(t, CountsJSON{Calls: 5, Invalid: 1, Incoming: 2, Answered: 1, Missed: 1, ButtonPresses: 7}, s.Counts)
	assert.Equal(t, "/numbers", s.Config.NumbersDir)
	assert.Empty(t, s.Event)
	assert.Empty(t, s.Reason)
}

func TestFormatJSONBeforeFirstUpdate(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &parsed))
	assert.Equal(t, "UNKNOWN", parsed.Status.State)
	assert.False(t, parsed.Status.Ready)
	assert.Equal(t, "DOWN", parsed.Status.Handset)
}

func TestFormatJSONRinging(t *testing.T) {
	st := idleStatus()
	st.State = logic.StateRinging
	st.IncomingNumber = "7"
	st.RingStart = start.Add(time.Minute)
	st.RingDuration = 4500 * time.Millisecond
	st.LED = phone.PatternFor(logic.StateRinging)

	snap := Snapshot{Phone: st, Started: true, StartTime: start, Now: start.Add(61 * time.Second)}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &parsed))
	require.NotNil(t, parsed.Status.Ring)
	assert.Equal(t, "2026-01-01T00:01:00Z", parsed.Status.Ring.Start)
	assert.Equal(t, int64(4500), parsed.Status.Ring.DurationMs)
	assert.Equal(t, "7", parsed.Status.IncomingNumber)
	assert.Equal(t, "blink", parsed.Status.LED.Mode)
	assert.Equal(t, "#ffffff", parsed.Status.LED.Color)
}

func TestFormatStatusEvent(t *testing.T) {
	st := idleStatus()
	st.Counts.Calls = 3
	snap := Snapshot{
		Phone:         st,
		Started:       true,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Broker: "tcp://localhost:1883"},
	}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatStatusEvent(snap, "HEARTBEAT", ""), &parsed))
	assert.Equal(t, "HEARTBEAT", parsed.Status.Event)
	assert.Empty(t, parsed.Status.Reason)
	assert.Equal(t, "IDLE", parsed.Status.State)
	assert.Equal(t, int64(900), parsed.Status.UptimeSeconds)
	assert.Equal(t, 3, parsed.Status.Counts.Calls)
}

func TestFormatStatusEventShutdown(t *testing.T) {
	snap := Snapshot{Phone: idleStatus(), Started: true, StartTime: start, Now: start.Add(30 * time.Minute)}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"), &parsed))
	assert.Equal(t, "SHUTDOWN", parsed.Status.Event)
	assert.Equal(t, "SIGTERM", parsed.Status.Reason)
}

func TestFormatStatusEventOmitsEmptyFields(t *testing.T) {
	snap := Snapshot{Phone: idleStatus(), Started: true, StartTime: start, Now: start.Add(time.Second)}

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(FormatStatusEvent(snap, "STARTUP", ""), &raw))
	status := raw["status"].(map[string]interface{})

	assert.Equal(t, "STARTUP", status["event"])
	for _, key := range []string{"reason", "ring", "network", "call_id", "last_number", "incoming_number"} {
		_, exists := status[key]
		assert.False(t, exists, "%s should be omitted when empty", key)
	}
}

func TestFormatStatusEventIsCompact(t *testing.T) {
	snap := Snapshot{Phone: idleStatus(), Started: true, StartTime: start, Now: start}
	assert.NotContains(t, string(FormatStatusEvent(snap, "STARTUP", "")), "\n")
	assert.Contains(t, string(FormatJSON(snap)), "\n")
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		Phone:     idleStatus(),
		Started:   true,
		StartTime: start,
		Now:       start.Add(time.Minute),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
	}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &parsed))
	require.NotNil(t, parsed.Status.Network)
	assert.Equal(t, "192.168.1.42", parsed.Status.Network.IP)
	assert.Equal(t, "MyNet", parsed.Status.Network.SSID)
}

func TestFormatJSONLEDOff(t *testing.T) {
	st := idleStatus()
	st.LED = led.Pattern{Mode: led.ModeOff, Color: led.Black}
	snap := Snapshot{Phone: st, Started: true, StartTime: start, Now: start}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &parsed))
	assert.Equal(t, "off", parsed.Status.LED.Mode)
	assert.Equal(t, "#000000", parsed.Status.LED.Color)
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			st := idleStatus()
			st.Counts.Calls = i
			tr.Update(st)
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
