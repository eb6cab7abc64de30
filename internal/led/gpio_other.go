//go:build !linux

package led

import (
	"errors"
	"image/color"
)

// GPIORenderer is not available on non-Linux platforms.
type GPIORenderer struct{}

// NewGPIORenderer returns an error on non-Linux platforms.
func NewGPIORenderer(chipName string, red, green, blue int) (*GPIORenderer, error) {
	return nil, errors.New("led: gpio not supported on this platform (requires Linux)")
}

// Render is not implemented on non-Linux platforms.
func (g *GPIORenderer) Render(c color.RGBA) error {
	return errors.New("led: gpio not supported")
}

// Close is not implemented on non-Linux platforms.
func (g *GPIORenderer) Close() error {
	return nil
}
