package logic

import "time"

// Trigger is an input of the call state machine.
type Trigger int

const (
	TriggerHandsetUp Trigger = iota
	TriggerHandsetDown
	TriggerDigit
	TriggerValidNumber
	TriggerInvalidNumber
	TriggerIncomingCall
	TriggerStopCall
	TriggerPlaybackDone
	TriggerRingTimeout
)

func (t Trigger) String() string {
	switch t {
	case TriggerHandsetUp:
		return "HANDSET_UP"
	case TriggerHandsetDown:
		return "HANDSET_DOWN"
	case TriggerDigit:
		return "DIGIT"
	case TriggerValidNumber:
		return "VALID_NUMBER"
	case TriggerInvalidNumber:
		return "INVALID_NUMBER"
	case TriggerIncomingCall:
		return "INCOMING_CALL"
	case TriggerStopCall:
		return "STOP_CALL"
	case TriggerPlaybackDone:
		return "PLAYBACK_DONE"
	case TriggerRingTimeout:
		return "RING_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

type transitionKey struct {
	from    CallState
	trigger Trigger
}

// transitions is the complete call table. Pairs not listed are ignored.
var transitions = map[transitionKey]CallState{
	{StateIdle, TriggerHandsetUp}:    StateDialing,
	{StateRinging, TriggerHandsetUp}: StateCalling,

	{StateDialing, TriggerHandsetDown}:       StateIdle,
	{StateCalling, TriggerHandsetDown}:       StateIdle,
	{StateInvalidNumber, TriggerHandsetDown}: StateIdle,
	{StateRinging, TriggerHandsetDown}:       StateIdle,

	{StateDialing, TriggerDigit}:         StateDialing,
	{StateDialing, TriggerValidNumber}:   StateCalling,
	{StateDialing, TriggerInvalidNumber}: StateInvalidNumber,

	{StateIdle, TriggerIncomingCall}: StateRinging,

	{StateIdle, TriggerStopCall}:          StateIdle,
	{StateDialing, TriggerStopCall}:       StateIdle,
	{StateCalling, TriggerStopCall}:       StateIdle,
	{StateInvalidNumber, TriggerStopCall}: StateIdle,
	{StateRinging, TriggerStopCall}:       StateIdle,

	{StateCalling, TriggerPlaybackDone}: StateIdle,
	{StateRinging, TriggerRingTimeout}:  StateIdle,
}

// Next looks up the state reached from s on trigger t. ok is false when the
// trigger is ignored in s.
func Next(s CallState, t Trigger) (next CallState, ok bool) {
	next, ok = transitions[transitionKey{s, t}]
	return next, ok
}

// CallConfig holds the call state machine settings.
type CallConfig struct {
	Dial          DialConfig
	RingDuration  time.Duration
	RingVariation time.Duration
}

// CallMachine is the call session state machine. It owns the dial session
// and reports to a Listener; audio is only stopped or queried, never started.
type CallMachine struct {
	dial     *DialSession
	dir      Directory
	audio    Audio
	rnd      Random
	listener Listener

	state          CallState
	lastNumber     string
	incomingNumber string

	ringDuration       time.Duration
	ringVariation      time.Duration
	ringStart          time.Time
	actualRingDuration time.Duration
}

// NewCallMachine creates a machine in StateIdle.
func NewCallMachine(cfg CallConfig, dir Directory, audio Audio, rnd Random, now time.Time) *CallMachine {
	return &CallMachine{
		dial:          NewDialSession(cfg.Dial, now),
		dir:           dir,
		audio:         audio,
		rnd:           rnd,
		state:         StateIdle,
		ringDuration:  cfg.RingDuration,
		ringVariation: cfg.RingVariation,
	}
}

// SetListener installs the notification target. nil disables notifications.
func (m *CallMachine) SetListener(l Listener) {
	m.listener = l
}

// SetRingTiming changes the ring window used by the next incoming call.
// A ring in progress keeps its computed duration.
func (m *CallMachine) SetRingTiming(duration, variation time.Duration) {
	if duration < 0 {
		duration = 0
	}
	if variation < 0 {
		variation = 0
	}
	m.ringDuration = duration
	m.ringVariation = variation
}

// Update samples the phone lines, dispatches the resulting dial events and
// then evaluates the timers.
func (m *CallMachine) Update(in DialInput, now time.Time) {
	for _, e := range m.dial.Update(in, now) {
		switch e.Type {
		case DialHandset:
			m.onHandset(e.HandsetUp, now)
		case DialDigit:
			m.onDigit(e.Digit, now)
		case DialNumber:
			m.onNumber(e.Number, now)
		}
	}
	m.Poll(now)
}

// Poll evaluates the timed transitions: playback finished while calling and
// the ring timeout.
func (m *CallMachine) Poll(now time.Time) {
	switch m.state {
	case StateCalling:
		if !m.audio.IsPlaying() {
			m.fire(TriggerPlaybackDone, now, "")
		}
	case StateRinging:
		if now.Sub(m.ringStart) >= m.actualRingDuration {
			m.fire(TriggerRingTimeout, now, "")
		}
	}
}

// StartCall begins an incoming call. It is rejected unless the machine is
// idle and the handset is down.
func (m *CallMachine) StartCall(number string, now time.Time) bool {
	if m.state != StateIdle || m.dial.HandsetUp() {
		return false
	}
	m.incomingNumber = number
	m.lastNumber = number
	return m.fire(TriggerIncomingCall, now, "")
}

// StopCall silences audio and returns to StateIdle. It is idempotent.
func (m *CallMachine) StopCall(now time.Time) {
	m.audio.Stop()
	m.fire(TriggerStopCall, now, "")
}

// DialNumber submits a complete number as if it had been dialed.
func (m *CallMachine) DialNumber(number string, now time.Time) bool {
	return m.onNumber(number, now)
}

// Redial submits the last number again while dialing.
func (m *CallMachine) Redial(now time.Time) bool {
	if m.lastNumber == "" {
		return false
	}
	return m.onNumber(m.lastNumber, now)
}

// State returns the current call state.
func (m *CallMachine) State() CallState {
	return m.state
}

// LastNumber returns the last dialed or incoming number.
func (m *CallMachine) LastNumber() string {
	return m.lastNumber
}

// IncomingNumber returns the number of the last incoming call.
func (m *CallMachine) IncomingNumber() string {
	return m.incomingNumber
}

// HandsetUp reports the debounced handset state.
func (m *CallMachine) HandsetUp() bool {
	return m.dial.HandsetUp()
}

// Dialing reports whether the dial is off its rest position.
func (m *CallMachine) Dialing() bool {
	return m.dial.Decoder().Dialing()
}

// PulseCount returns the pulses counted in the current or last rotation.
func (m *CallMachine) PulseCount() int {
	return m.dial.Decoder().PulseCount()
}

// DialBuffer returns the digits dialed in the current session.
func (m *CallMachine) DialBuffer() string {
	return m.dial.Buffer()
}

// RingWindow returns when the current or last ring started and how long it
// lasts.
func (m *CallMachine) RingWindow() (start time.Time, duration time.Duration) {
	return m.ringStart, m.actualRingDuration
}

func (m *CallMachine) onHandset(up bool, now time.Time) {
	if m.listener != nil {
		m.listener.HandsetChanged(up, now)
	}
	if up {
		m.fire(TriggerHandsetUp, now, "")
		return
	}
	switch m.state {
	case StateCalling, StateInvalidNumber, StateRinging:
		m.audio.Stop()
	}
	m.fire(TriggerHandsetDown, now, "")
}

func (m *CallMachine) onDigit(digit int, now time.Time) {
	if m.state != StateDialing {
		return
	}
	if m.listener != nil {
		m.listener.DigitDialed(digit, now)
	}
	m.fire(TriggerDigit, now, "")
}

func (m *CallMachine) onNumber(number string, now time.Time) bool {
	if m.state != StateDialing {
		return false
	}
	m.lastNumber = number
	if m.listener != nil {
		m.listener.NumberDialed(number, now)
	}
	if path, ok := m.dir.Lookup(number); ok {
		return m.fire(TriggerValidNumber, now, path)
	}
	return m.fire(TriggerInvalidNumber, now, "")
}

// fire applies the table. The listener sees only real state changes.
func (m *CallMachine) fire(t Trigger, now time.Time, path string) bool {
	next, ok := Next(m.state, t)
	if !ok {
		return false
	}
	if next == m.state {
		return true
	}

	prev := m.state
	m.state = next

	switch next {
	case StateRinging:
		m.ringStart = now
		m.actualRingDuration = m.computeRingDuration()
	case StateCalling:
		if path == "" {
			path, _ = m.dir.Lookup(m.lastNumber)
		}
	}

	if m.listener != nil {
		m.listener.StateChanged(Transition{
			From:      prev,
			To:        next,
			Trigger:   t,
			Number:    m.lastNumber,
			AudioPath: path,
			Time:      now,
		})
	}
	return true
}

func (m *CallMachine) computeRingDuration() time.Duration {
	if m.ringVariation <= 0 || m.rnd == nil {
		return m.ringDuration
	}
	v := int64(m.ringVariation)
	d := m.ringDuration + time.Duration(m.rnd.Uniform(-v, v))
	if d < 0 {
		d = 0
	}
	return d
}
