package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(timeout time.Duration) (*DialSession, *lineSim, *[]DialEvent) {
	cfg := DefaultDialConfig()
	cfg.DialTimeout = timeout
	s := NewDialSession(cfg, t0)
	events := &[]DialEvent{}
	sim := &lineSim{handle: func(in DialInput, now time.Time) {
		*events = append(*events, s.Update(in, now)...)
	}}
	return s, sim, events
}

func eventsOfType(events []DialEvent, typ DialEventType) []DialEvent {
	var out []DialEvent
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestDialSessionTwoDigitNumber(t *testing.T) {
	s, sim, events := newTestSession(1200 * time.Millisecond)

	sim.hold(DialInput{HandsetUp: true}, 150)
	sim.rotate(true, 1)
	sim.hold(DialInput{HandsetUp: true}, 300)
	sim.rotate(true, 2)
	assert.Equal(t, "12", s.Buffer())

	sim.hold(DialInput{HandsetUp: true}, 1500)

	handset := eventsOfType(*events, DialHandset)
	require.Len(t, handset, 1)
	assert.True(t, handset[0].HandsetUp)
	assert.Equal(t, at(100), handset[0].Time)

	digits := eventsOfType(*events, DialDigit)
	require.Len(t, digits, 2)
	assert.Equal(t, 1, digits[0].Digit)
	assert.Equal(t, 2, digits[1].Digit)

	numbers := eventsOfType(*events, DialNumber)
	require.Len(t, numbers, 1)
	assert.Equal(t, "12", numbers[0].Number)
	assert.Equal(t, digits[1].Time.Add(1200*time.Millisecond), numbers[0].Time)
	assert.Empty(t, s.Buffer())
}

func TestDialSessionSingleDigitNeverCompletes(t *testing.T) {
	s, sim, events := newTestSession(time.Second)

	sim.hold(DialInput{HandsetUp: true}, 150)
	sim.rotate(true, 7)
	sim.hold(DialInput{HandsetUp: true}, 5000)

	assert.Empty(t, eventsOfType(*events, DialNumber))
	assert.Equal(t, "7", s.Buffer())
}

func TestDialSessionDigitCap(t *testing.T) {
	s := NewDialSession(DefaultDialConfig(), t0)
	s.HandsetChanged(true, t0)

	for i := 0; i < MaxDigits; i++ {
		_, ok := s.AddDigit(i%10, at(i))
		require.True(t, ok, "digit %d rejected", i)
	}
	_, ok := s.AddDigit(9, at(MaxDigits))
	assert.False(t, ok, "digits beyond the cap are dropped")

	e, ok := s.Poll(at(MaxDigits))
	require.True(t, ok, "a full buffer completes without waiting for the timeout")
	assert.Equal(t, "0123456789012345", e.Number)
	assert.Len(t, e.Number, MaxDigits)
	assert.Empty(t, s.Buffer())
}

func TestDialSessionDropsDigitsWithHandsetDown(t *testing.T) {
	s, sim, events := newTestSession(time.Second)

	sim.rotate(false, 4)
	assert.Empty(t, eventsOfType(*events, DialDigit))
	assert.Empty(t, s.Buffer())

	_, ok := s.AddDigit(4, at(sim.ms))
	assert.False(t, ok)
}

func TestDialSessionRejectsOutOfRangeDigit(t *testing.T) {
	s := NewDialSession(DefaultDialConfig(), t0)
	s.HandsetChanged(true, t0)

	_, ok := s.AddDigit(10, t0)
	assert.False(t, ok)
	_, ok = s.AddDigit(-1, t0)
	assert.False(t, ok)
}

func TestDialSessionHandsetClearsBuffer(t *testing.T) {
	s := NewDialSession(DefaultDialConfig(), t0)

	s.HandsetChanged(true, t0)
	s.AddDigit(3, at(10))
	s.AddDigit(4, at(20))
	require.Equal(t, "34", s.Buffer())

	e := s.HandsetChanged(false, at(30))
	assert.Equal(t, DialHandset, e.Type)
	assert.False(t, e.HandsetUp)
	assert.Empty(t, s.Buffer())

	s.HandsetChanged(true, at(40))
	s.AddDigit(5, at(50))
	s.HandsetChanged(true, at(60))
	assert.Empty(t, s.Buffer())
}

func TestDialSessionHandsetBounceIgnored(t *testing.T) {
	_, sim, events := newTestSession(time.Second)

	for i := 0; i < 5; i++ {
		sim.hold(DialInput{HandsetUp: true}, 30)
		sim.hold(DialInput{}, 30)
	}
	assert.Empty(t, *events)
}

func TestDialSessionTimeoutMeasuredFromLastDigit(t *testing.T) {
	s := NewDialSession(DefaultDialConfig(), t0)
	s.HandsetChanged(true, t0)
	s.AddDigit(1, at(0))
	s.AddDigit(2, at(2000))

	_, ok := s.Poll(at(4999))
	assert.False(t, ok)

	e, ok := s.Poll(at(5000))
	require.True(t, ok)
	assert.Equal(t, "12", e.Number)
	assert.Empty(t, s.Buffer())
}
