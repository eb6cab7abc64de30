package led

import "image/color"

// FakeRenderer records rendered frames for tests.
type FakeRenderer struct {
	Frames []color.RGBA

	// RenderError, if set, will be returned by Render()
	RenderError error

	Closed bool
}

// NewFakeRenderer creates an empty FakeRenderer.
func NewFakeRenderer() *FakeRenderer {
	return &FakeRenderer{}
}

// Render records the frame.
func (f *FakeRenderer) Render(c color.RGBA) error {
	if f.RenderError != nil {
		return f.RenderError
	}
	f.Frames = append(f.Frames, c)
	return nil
}

// Close marks the renderer as closed.
func (f *FakeRenderer) Close() error {
	f.Closed = true
	return nil
}

// Last returns the most recent frame, or Black when nothing was rendered.
func (f *FakeRenderer) Last() color.RGBA {
	if len(f.Frames) == 0 {
		return Black
	}
	return f.Frames[len(f.Frames)-1]
}

// Reset clears recorded frames.
func (f *FakeRenderer) Reset() {
	f.Frames = nil
	f.Closed = false
}
