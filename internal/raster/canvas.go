// Package raster draws waveform frames into 24-bit bottom-up pixel buffers
// of the kind an uncompressed AVI video stream stores.
package raster

import (
	"image"
	"image/color"
)

// BytesPerPixel is the size of one B,G,R pixel.
const BytesPerPixel = 3

// Canvas is a 24-bit pixel buffer with bottom-up rows in B,G,R order.
// Stride is Width*3 rounded up to a multiple of 4.
//
// Canvas implements image.Image with top-down coordinates so frames can be
// inspected or encoded with the standard image packages.
type Canvas struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// RowStride returns the 4-byte aligned row length for width pixels.
func RowStride(width int) int {
	return (width*BytesPerPixel + 3) / 4 * 4
}

// NewCanvas allocates a black canvas.
func NewCanvas(width, height int) *Canvas {
	stride := RowStride(width)

	return &Canvas{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}
}

// Size returns the buffer length in bytes.
func (c *Canvas) Size() int { return len(c.Pix) }

// Clear resets every byte, including row padding, to zero.
func (c *Canvas) Clear() {
	clear(c.Pix)
}

// Set plots one pixel at top-down (x, y). Coordinates outside the canvas are
// ignored.
func (c *Canvas) Set(x, y int, col color.RGBA) {
	if x < 0 || x >= c.Width || y < 0 || y >= c.Height {
		return
	}

	i := c.offset(x, y)
	c.Pix[i+0] = col.B
	c.Pix[i+1] = col.G
	c.Pix[i+2] = col.R
}

// HLine fills row y with col.
func (c *Canvas) HLine(y int, col color.RGBA) {
	for x := range c.Width {
		c.Set(x, y, col)
	}
}

// offset maps top-down (x, y) to the bottom-up buffer.
func (c *Canvas) offset(x, y int) int {
	return (c.Height-1-y)*c.Stride + x*BytesPerPixel
}

func (c *Canvas) ColorModel() color.Model { return color.RGBAModel }

func (c *Canvas) Bounds() image.Rectangle { return image.Rect(0, 0, c.Width, c.Height) }

func (c *Canvas) At(x, y int) color.Color {
	return c.RGBAAt(x, y)
}

// RGBAAt returns the pixel at top-down (x, y), or transparent black outside
// the canvas.
func (c *Canvas) RGBAAt(x, y int) color.RGBA {
	if x < 0 || x >= c.Width || y < 0 || y >= c.Height {
		return color.RGBA{}
	}

	i := c.offset(x, y)

	return color.RGBA{R: c.Pix[i+2], G: c.Pix[i+1], B: c.Pix[i+0], A: 0xff}
}
