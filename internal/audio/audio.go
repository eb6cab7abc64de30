// Package audio plays the phone's sound files.
package audio

// Player plays one sound at a time.
type Player interface {
	// Play starts path, replacing anything already playing. A looping sound
	// restarts from Update until Stop.
	Play(path string, loop bool) error

	// Stop ends playback. It is safe to call when nothing plays.
	Stop()

	// IsPlaying reports whether a sound is playing. A looping sound counts
	// as playing between restarts.
	IsPlaying() bool

	// SetVolume sets the output volume in percent (clamped to 0..100).
	SetVolume(percent int) error

	// Update is called every tick and restarts a finished looping sound.
	Update() error
}

func clampVolume(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
