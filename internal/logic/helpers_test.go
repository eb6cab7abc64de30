package logic

import "time"

// tickMs is the polling resolution used by the line simulations.
const tickMs = 5

// lineSim replays phone line levels into a sampling function at tickMs
// resolution. ms is the simulated clock in milliseconds since t0.
type lineSim struct {
	ms     int
	handle func(in DialInput, now time.Time)
}

func (s *lineSim) hold(in DialInput, durMs int) {
	for k := 0; k < durMs; k += tickMs {
		s.handle(in, at(s.ms))
		s.ms += tickMs
	}
}

// rotate simulates one full dial rotation producing pulses pulses at 10pps.
func (s *lineSim) rotate(handsetUp bool, pulses int) {
	s.hold(DialInput{HandsetUp: handsetUp, Rotating: true}, 30)
	for i := 0; i < pulses; i++ {
		s.hold(DialInput{HandsetUp: handsetUp, Rotating: true, Pulse: true}, 40)
		s.hold(DialInput{HandsetUp: handsetUp, Rotating: true}, 60)
	}
	s.hold(DialInput{HandsetUp: handsetUp}, 30)
}

type fakeDirectory map[string]string

func (d fakeDirectory) Lookup(number string) (string, bool) {
	p, ok := d[number]
	return p, ok
}

type fakeAudio struct {
	playing bool
	stops   int
}

func (a *fakeAudio) Stop() {
	a.playing = false
	a.stops++
}

func (a *fakeAudio) IsPlaying() bool { return a.playing }

// fixedRandom always returns the same offset, clamped into [min, max].
type fixedRandom struct {
	value int64
	calls int
}

func (r *fixedRandom) Uniform(min, max int64) int64 {
	r.calls++
	if r.value < min {
		return min
	}
	if r.value > max {
		return max
	}
	return r.value
}

type recordingListener struct {
	transitions []Transition
	digits      []int
	numbers     []string
	handset     []bool
	onChange    func(t Transition)
}

func (l *recordingListener) StateChanged(t Transition) {
	l.transitions = append(l.transitions, t)
	if l.onChange != nil {
		l.onChange(t)
	}
}

func (l *recordingListener) DigitDialed(d int, _ time.Time) { l.digits = append(l.digits, d) }

func (l *recordingListener) NumberDialed(n string, _ time.Time) { l.numbers = append(l.numbers, n) }

func (l *recordingListener) HandsetChanged(up bool, _ time.Time) { l.handset = append(l.handset, up) }

func (l *recordingListener) states() []CallState {
	out := make([]CallState, len(l.transitions))
	for i, tr := range l.transitions {
		out[i] = tr.To
	}
	return out
}
