package led

import (
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func TestAnimatorRendersOnlyAfterRate(t *testing.T) {
	r := NewFakeRenderer()
	a := NewAnimator(r)
	a.Apply(Pattern{Mode: ModeConstant, Color: Red, Rate: 30 * time.Millisecond})

	rendered, err := a.Update(at(0))
	require.NoError(t, err)
	assert.True(t, rendered, "first update after Apply renders immediately")

	for ms := 1; ms < 30; ms++ {
		rendered, _ = a.Update(at(ms))
		assert.False(t, rendered, "no render at %dms", ms)
	}

	rendered, _ = a.Update(at(30))
	assert.True(t, rendered)
	assert.Len(t, r.Frames, 2)
	assert.Equal(t, Red, r.Last())
}

func TestAnimatorOff(t *testing.T) {
	r := NewFakeRenderer()
	a := NewAnimator(r)

	a.Update(at(0))
	assert.Equal(t, Black, r.Last())
	assert.Equal(t, ModeOff, a.Pattern().Mode)
}

func TestAnimatorBlinkAlternates(t *testing.T) {
	r := NewFakeRenderer()
	a := NewAnimator(r)
	a.Apply(Pattern{Mode: ModeBlink, Color: White, Rate: 250 * time.Millisecond})

	for i := 0; i < 4; i++ {
		a.Update(at(i * 250))
	}
	assert.Equal(t, []color.RGBA{White, Black, White, Black}, r.Frames)
}

func TestAnimatorPulseStaysWithinDutyCycle(t *testing.T) {
	r := NewFakeRenderer()
	a := NewAnimator(r)
	a.Apply(Pattern{Mode: ModePulse, Color: Green, Rate: 10 * time.Millisecond, DutyCycle: 20})

	peak := Scale(Green, 20)
	sawPeak, sawDark := false, false
	for i := 0; i < 100; i++ {
		a.Update(at(i * 10))
		f := r.Last()
		assert.LessOrEqual(t, f.G, peak.G)
		assert.Zero(t, f.R)
		assert.Zero(t, f.B)
		if f.G == peak.G {
			sawPeak = true
		}
		if f == Scale(Green, 0) {
			sawDark = true
		}
	}
	assert.True(t, sawPeak, "pulse should reach the duty cycle")
	assert.True(t, sawDark, "pulse should fall back to zero")
}

func TestAnimatorPulseRamp(t *testing.T) {
	r := NewFakeRenderer()
	a := NewAnimator(r)
	a.Apply(Pattern{Mode: ModePulse, Color: White, Rate: time.Millisecond, DutyCycle: 6})

	for i := 0; i < 7; i++ {
		a.Update(at(i))
	}
	want := []uint8{2, 4, 6, 4, 2, 0, 2}
	require.Len(t, r.Frames, len(want))
	for i, b := range want {
		assert.Equal(t, Scale(White, b), r.Frames[i], "frame %d", i)
	}
}

func TestAnimatorRainbowAdvancesHue(t *testing.T) {
	r := NewFakeRenderer()
	a := NewAnimator(r)
	a.Apply(Pattern{Mode: ModeRainbow, Rate: 30 * time.Millisecond, DutyCycle: 128})

	for i := 0; i < 3; i++ {
		a.Update(at(i * 30))
	}
	require.Len(t, r.Frames, 3)
	assert.Equal(t, HSV(0, 255, 255), r.Frames[0])
	assert.Equal(t, HSV(1, 255, 255), r.Frames[1])
	assert.Equal(t, HSV(2, 255, 255), r.Frames[2])
}

func TestAnimatorSetModeRendersImmediately(t *testing.T) {
	r := NewFakeRenderer()
	a := NewAnimator(r)
	a.Apply(Pattern{Mode: ModeConstant, Color: Red, Rate: time.Second})
	a.Update(at(0))

	a.Apply(Pattern{Mode: ModeConstant, Color: Yellow, Rate: time.Second})
	rendered, _ := a.Update(at(5))
	assert.True(t, rendered)
	assert.Equal(t, Yellow, a.Current())
}

func TestAnimatorRenderError(t *testing.T) {
	r := NewFakeRenderer()
	r.RenderError = errors.New("bus error")
	a := NewAnimator(r)

	rendered, err := a.Update(at(0))
	assert.True(t, rendered)
	assert.Error(t, err)

	rendered, err = a.Update(at(1))
	assert.False(t, rendered, "a failed render still waits for the next period")
	assert.NoError(t, err)
}

func TestScale(t *testing.T) {
	assert.Equal(t, White, Scale(White, 255))
	assert.Equal(t, Black, Scale(White, 0))
	assert.Equal(t, color.RGBA{R: 127, A: 0xff}, Scale(Red, 127))
}

func TestHSV(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 255, A: 0xff}, HSV(0, 255, 255))
	assert.Equal(t, color.RGBA{R: 9, G: 9, B: 9, A: 0xff}, HSV(100, 0, 9))

	green := HSV(86, 255, 255)
	assert.Greater(t, green.G, green.R)
	assert.Greater(t, green.G, green.B)
}
