package ws2812b

import "image/color"

// Pixel is one LED's channel intensities. Pixels are held in conventional
// RGB field order; the wire order (green, red, blue) is applied during
// encoding.
type Pixel struct {
	R, G, B uint8
}

// MakePixel converts any color.Color to a Pixel, dropping alpha.
func MakePixel(c color.Color) Pixel {
	r, g, b, _ := c.RGBA()
	return Pixel{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// NRGBA returns the pixel as an opaque color, handy for drawing previews.
func (p Pixel) NRGBA() color.NRGBA {
	return color.NRGBA{R: p.R, G: p.G, B: p.B, A: 255}
}
