package logic

import "time"

// DialConfig holds the timing of a dial session.
type DialConfig struct {
	HandsetDebounce  time.Duration
	PulseDebounce    time.Duration
	RotationDebounce time.Duration
	// DialTimeout is the inter-digit gap that completes a number.
	DialTimeout time.Duration
}

// DefaultDialConfig returns the timing used by the phone hardware.
func DefaultDialConfig() DialConfig {
	return DialConfig{
		HandsetDebounce:  100 * time.Millisecond,
		PulseDebounce:    80 * time.Millisecond,
		RotationDebounce: 10 * time.Millisecond,
		DialTimeout:      3 * time.Second,
	}
}

// DialSession tracks the handset and accumulates dialed digits into a number.
// A number completes when at least two digits were dialed and the dial
// timeout elapsed since the last digit, or when MaxDigits is reached.
type DialSession struct {
	cfg       DialConfig
	handset   *Debouncer
	decoder   *PulseDecoder
	handsetUp bool
	buffer    []byte
	lastDigit time.Time
}

// NewDialSession creates a session with the handset down and an empty buffer.
func NewDialSession(cfg DialConfig, now time.Time) *DialSession {
	return &DialSession{
		cfg:     cfg,
		handset: NewDebouncer(cfg.HandsetDebounce, false, now),
		decoder: NewPulseDecoder(cfg.PulseDebounce, cfg.RotationDebounce, now),
		buffer:  make([]byte, 0, MaxDigits),
	}
}

// Update samples the phone lines and returns what happened, in order:
// handset change, digit, completed number.
func (s *DialSession) Update(in DialInput, now time.Time) []DialEvent {
	var events []DialEvent

	if edge, ok := s.handset.Sample(in.HandsetUp, now); ok {
		events = append(events, s.HandsetChanged(edge.Level, now))
	}

	s.decoder.Update(in.Rotating, in.Pulse, now)
	if digit, ok := s.decoder.TakeDigit(); ok {
		if e, ok := s.AddDigit(digit, now); ok {
			events = append(events, e)
		}
	}

	if e, ok := s.Poll(now); ok {
		events = append(events, e)
	}

	return events
}

// HandsetChanged records a handset edge. The number buffer is cleared in
// both directions.
func (s *DialSession) HandsetChanged(up bool, now time.Time) DialEvent {
	s.handsetUp = up
	s.buffer = s.buffer[:0]
	return DialEvent{Type: DialHandset, Time: now, HandsetUp: up}
}

// AddDigit appends a digit to the buffer. Digits are dropped while the
// handset is down or when the digit is out of range.
func (s *DialSession) AddDigit(digit int, now time.Time) (DialEvent, bool) {
	if !s.handsetUp || digit < 0 || digit > 9 {
		return DialEvent{}, false
	}
	if len(s.buffer) >= MaxDigits {
		return DialEvent{}, false
	}
	s.buffer = append(s.buffer, byte('0'+digit))
	s.lastDigit = now
	return DialEvent{Type: DialDigit, Time: now, Digit: digit}, true
}

// Poll completes the buffered number if the timeout or the digit cap is hit.
func (s *DialSession) Poll(now time.Time) (DialEvent, bool) {
	n := len(s.buffer)
	timedOut := n >= 2 && now.Sub(s.lastDigit) >= s.cfg.DialTimeout
	if !timedOut && n < MaxDigits {
		return DialEvent{}, false
	}

	number := string(s.buffer)
	s.buffer = s.buffer[:0]
	return DialEvent{Type: DialNumber, Time: now, Number: number}, true
}

// HandsetUp reports the debounced handset state.
func (s *DialSession) HandsetUp() bool {
	return s.handsetUp
}

// Buffer returns the digits dialed so far.
func (s *DialSession) Buffer() string {
	return string(s.buffer)
}

// Decoder exposes the pulse decoder for status reporting.
func (s *DialSession) Decoder() *PulseDecoder {
	return s.decoder
}
