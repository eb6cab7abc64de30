package audio

// PlayCall records one Play invocation.
type PlayCall struct {
	Path string
	Loop bool
}

// FakePlayer records playback requests for tests. A sound plays until
// Finish or Stop is called.
type FakePlayer struct {
	Played  []PlayCall
	Volumes []int
	Stops   int

	// Restarts counts loop restarts performed by Update.
	Restarts int

	// PlayError, if set, will be returned by Play.
	PlayError error
	// VolumeError, if set, will be returned by SetVolume.
	VolumeError error

	playing  bool
	looping  bool
	finished bool
}

// NewFakePlayer creates an idle FakePlayer.
func NewFakePlayer() *FakePlayer {
	return &FakePlayer{}
}

// Play records the request and starts "playing".
func (f *FakePlayer) Play(path string, loop bool) error {
	if f.PlayError != nil {
		return f.PlayError
	}
	f.Played = append(f.Played, PlayCall{Path: path, Loop: loop})
	f.playing = true
	f.looping = loop
	f.finished = false
	return nil
}

// Stop ends playback.
func (f *FakePlayer) Stop() {
	f.Stops++
	f.playing = false
	f.looping = false
}

// IsPlaying reports whether a sound is playing.
func (f *FakePlayer) IsPlaying() bool {
	return f.playing
}

// SetVolume records the clamped volume.
func (f *FakePlayer) SetVolume(percent int) error {
	if f.VolumeError != nil {
		return f.VolumeError
	}
	f.Volumes = append(f.Volumes, clampVolume(percent))
	return nil
}

// Update restarts a finished loop.
func (f *FakePlayer) Update() error {
	if f.looping && f.finished {
		f.finished = false
		f.Restarts++
	}
	return nil
}

// Finish simulates the end of the current sound file.
func (f *FakePlayer) Finish() {
	if !f.playing {
		return
	}
	f.finished = true
	if !f.looping {
		f.playing = false
	}
}

// Volume returns the last volume set, or -1.
func (f *FakePlayer) Volume() int {
	if len(f.Volumes) == 0 {
		return -1
	}
	return f.Volumes[len(f.Volumes)-1]
}

// Last returns the most recent Play call.
func (f *FakePlayer) Last() (PlayCall, bool) {
	if len(f.Played) == 0 {
		return PlayCall{}, false
	}
	return f.Played[len(f.Played)-1], true
}

// Reset clears all recorded calls and stops playback.
func (f *FakePlayer) Reset() {
	*f = FakePlayer{}
}
