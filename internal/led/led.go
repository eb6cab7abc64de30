// Package led drives the phone's front LED. The Animator turns a pattern
// (mode, color, rate, duty cycle) into frames; a Renderer puts a frame on
// the hardware.
package led

import "image/color"

// Renderer outputs one frame to the LED.
type Renderer interface {
	Render(c color.RGBA) error
	Close() error
}

// Named colors used by the call patterns.
var (
	Black  = color.RGBA{A: 0xff}
	Red    = color.RGBA{R: 0xff, A: 0xff}
	Green  = color.RGBA{G: 0xff, A: 0xff}
	Yellow = color.RGBA{R: 0xff, G: 0xff, A: 0xff}
	White  = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Scale dims c to scale/256 of its brightness, like FastLED's scale8.
func Scale(c color.RGBA, scale uint8) color.RGBA {
	s := uint16(scale) + 1
	return color.RGBA{
		R: uint8(uint16(c.R) * s >> 8),
		G: uint8(uint16(c.G) * s >> 8),
		B: uint8(uint16(c.B) * s >> 8),
		A: 0xff,
	}
}

// HSV converts a hue/saturation/value triple on a 0-255 scale to RGB.
func HSV(h, s, v uint8) color.RGBA {
	if s == 0 {
		return color.RGBA{R: v, G: v, B: v, A: 0xff}
	}

	hh, ss, vv := int(h), int(s), int(v)
	region := hh / 43
	rem := (hh - region*43) * 6

	p := vv * (255 - ss) >> 8
	q := vv * (255 - (ss*rem)>>8) >> 8
	t := vv * (255 - (ss*(255-rem))>>8) >> 8

	var r, g, b int
	switch region {
	case 0:
		r, g, b = vv, t, p
	case 1:
		r, g, b = q, vv, p
	case 2:
		r, g, b = p, vv, t
	case 3:
		r, g, b = p, q, vv
	case 4:
		r, g, b = t, p, vv
	default:
		r, g, b = vv, p, q
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xff}
}
